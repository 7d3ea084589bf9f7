package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"ellarises/internal/adapters/storage"
	eventStore "ellarises/internal/adapters/storage/event"
	participantStore "ellarises/internal/adapters/storage/participant"
	registrationStore "ellarises/internal/adapters/storage/registration"
	userStore "ellarises/internal/adapters/storage/user"
	"ellarises/internal/domain/donation"
	"ellarises/internal/domain/event"
	"ellarises/internal/domain/milestone"
	"ellarises/internal/domain/outbox"
	"ellarises/internal/domain/participant"
	"ellarises/internal/domain/registration"
	"ellarises/internal/domain/survey"
	"ellarises/internal/domain/user"
)

func TestMain(m *testing.M) {
	user.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// errUnique is what the Postgres driver returns for a duplicate key.
var errUnique = &pq.Error{Code: "23505"}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, storage.ErrNotFound)
}

// --- users ---

type mockUsers struct {
	rows         map[int64]user.User
	nextID       int64
	emailLookups int
}

func newMockUsers(seed ...user.User) *mockUsers {
	m := &mockUsers{rows: map[int64]user.User{}, nextID: 1}
	for _, u := range seed {
		if u.ID == 0 {
			u.ID = m.nextID
		}
		m.rows[u.ID] = u
		if u.ID >= m.nextID {
			m.nextID = u.ID + 1
		}
	}
	return m
}

func (m *mockUsers) GetByID(_ context.Context, id int64) (user.User, error) {
	u, ok := m.rows[id]
	if !ok {
		return user.User{}, notFound("user", id)
	}
	return u, nil
}

func (m *mockUsers) GetByEmail(_ context.Context, email string) (user.User, error) {
	m.emailLookups++
	for _, u := range m.rows {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, notFound("user", email)
}

func (m *mockUsers) Create(_ context.Context, u user.User) (int64, error) {
	for _, existing := range m.rows {
		if existing.Email == u.Email {
			return 0, errUnique
		}
	}
	u.ID = m.nextID
	m.nextID++
	m.rows[u.ID] = u
	return u.ID, nil
}

func (m *mockUsers) Update(_ context.Context, u user.User) error {
	if _, ok := m.rows[u.ID]; !ok {
		return notFound("user", u.ID)
	}
	for _, existing := range m.rows {
		if existing.ID != u.ID && existing.Email == u.Email {
			return errUnique
		}
	}
	m.rows[u.ID] = u
	return nil
}

func (m *mockUsers) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return notFound("user", id)
	}
	delete(m.rows, id)
	return nil
}

func (m *mockUsers) Count(_ context.Context, filter userStore.ListFilter) (int, error) {
	n := 0
	for _, u := range m.rows {
		if filter.Level == "" || u.Level == filter.Level {
			n++
		}
	}
	return n, nil
}

func (m *mockUsers) LinkParticipant(_ context.Context, userID, participantID int64) error {
	u, ok := m.rows[userID]
	if !ok {
		return notFound("user", userID)
	}
	u.ParticipantID = participantID
	m.rows[userID] = u
	return nil
}

func mustUser(t *testing.T, id int64, email, password, level string) user.User {
	t.Helper()
	u := user.User{ID: id, Email: email, Level: level, CreatedAt: fixedTime}
	if err := u.SetPassword(password); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	return u
}

// --- participants ---

type mockParticipants struct {
	rows         map[int64]participant.Participant
	dependents   map[int64]participantStore.Dependents
	nextID       int64
	emailLookups int
}

func newMockParticipants(seed ...participant.Participant) *mockParticipants {
	m := &mockParticipants{
		rows:       map[int64]participant.Participant{},
		dependents: map[int64]participantStore.Dependents{},
		nextID:     1,
	}
	for _, p := range seed {
		m.rows[p.ID] = p
		if p.ID >= m.nextID {
			m.nextID = p.ID + 1
		}
	}
	return m
}

func (m *mockParticipants) GetByID(_ context.Context, id int64) (participant.Participant, error) {
	p, ok := m.rows[id]
	if !ok {
		return participant.Participant{}, notFound("participant", id)
	}
	return p, nil
}

func (m *mockParticipants) GetByEmail(_ context.Context, email string) (participant.Participant, error) {
	m.emailLookups++
	for _, p := range m.rows {
		if p.Email == email {
			return p, nil
		}
	}
	return participant.Participant{}, notFound("participant", email)
}

func (m *mockParticipants) Create(_ context.Context, p participant.Participant) (int64, error) {
	for _, existing := range m.rows {
		if existing.Email == p.Email {
			return 0, errUnique
		}
	}
	p.ID = m.nextID
	m.nextID++
	m.rows[p.ID] = p
	return p.ID, nil
}

func (m *mockParticipants) Update(_ context.Context, p participant.Participant) error {
	if _, ok := m.rows[p.ID]; !ok {
		return notFound("participant", p.ID)
	}
	for _, existing := range m.rows {
		if existing.ID != p.ID && existing.Email == p.Email {
			return errUnique
		}
	}
	m.rows[p.ID] = p
	return nil
}

func (m *mockParticipants) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return notFound("participant", id)
	}
	delete(m.rows, id)
	return nil
}

func (m *mockParticipants) Dependents(_ context.Context, id int64) (participantStore.Dependents, error) {
	return m.dependents[id], nil
}

func ana() participant.Participant {
	return participant.Participant{ID: 1, FirstName: "Ana", LastName: "Lopez", Email: "ana@example.org", Role: participant.RoleParticipant}
}

// --- milestones and donations ---

type mockMilestones struct {
	owners map[int64]bool
	rows   map[int64][]milestone.Milestone
}

func newMockMilestones(owners ...int64) *mockMilestones {
	m := &mockMilestones{owners: map[int64]bool{}, rows: map[int64][]milestone.Milestone{}}
	for _, id := range owners {
		m.owners[id] = true
	}
	return m
}

func (m *mockMilestones) Add(_ context.Context, ms milestone.Milestone) (milestone.Milestone, error) {
	if !m.owners[ms.ParticipantID] {
		return milestone.Milestone{}, notFound("participant", ms.ParticipantID)
	}
	next := 1
	for _, existing := range m.rows[ms.ParticipantID] {
		if existing.Number >= next {
			next = existing.Number + 1
		}
	}
	ms.Number = next
	m.rows[ms.ParticipantID] = append(m.rows[ms.ParticipantID], ms)
	return ms, nil
}

func (m *mockMilestones) Get(_ context.Context, pid int64, number int) (milestone.Milestone, error) {
	for _, ms := range m.rows[pid] {
		if ms.Number == number {
			return ms, nil
		}
	}
	return milestone.Milestone{}, notFound("milestone", number)
}

func (m *mockMilestones) Update(_ context.Context, ms milestone.Milestone) error {
	for i, existing := range m.rows[ms.ParticipantID] {
		if existing.Number == ms.Number {
			m.rows[ms.ParticipantID][i] = ms
			return nil
		}
	}
	return notFound("milestone", ms.Number)
}

func (m *mockMilestones) Delete(_ context.Context, pid int64, number int) error {
	rows := m.rows[pid]
	for i, existing := range rows {
		if existing.Number == number {
			m.rows[pid] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return notFound("milestone", number)
}

type mockDonations struct {
	owners map[int64]bool
	rows   map[int64][]donation.Donation
}

func newMockDonations(owners ...int64) *mockDonations {
	m := &mockDonations{owners: map[int64]bool{}, rows: map[int64][]donation.Donation{}}
	for _, id := range owners {
		m.owners[id] = true
	}
	return m
}

func (m *mockDonations) Add(_ context.Context, d donation.Donation) (donation.Donation, error) {
	if !m.owners[d.ParticipantID] {
		return donation.Donation{}, notFound("participant", d.ParticipantID)
	}
	next := 1
	for _, existing := range m.rows[d.ParticipantID] {
		if existing.Number >= next {
			next = existing.Number + 1
		}
	}
	d.Number = next
	m.rows[d.ParticipantID] = append(m.rows[d.ParticipantID], d)
	return d, nil
}

func (m *mockDonations) Get(_ context.Context, pid int64, number int) (donation.Donation, error) {
	for _, d := range m.rows[pid] {
		if d.Number == number {
			return d, nil
		}
	}
	return donation.Donation{}, notFound("donation", number)
}

func (m *mockDonations) Update(_ context.Context, d donation.Donation) error {
	for i, existing := range m.rows[d.ParticipantID] {
		if existing.Number == d.Number {
			m.rows[d.ParticipantID][i] = d
			return nil
		}
	}
	return notFound("donation", d.Number)
}

func (m *mockDonations) Delete(_ context.Context, pid int64, number int) error {
	rows := m.rows[pid]
	for i, existing := range rows {
		if existing.Number == number {
			m.rows[pid] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return notFound("donation", number)
}

func (m *mockDonations) total(pid int64) int64 {
	var sum int64
	for _, d := range m.rows[pid] {
		sum += d.AmountCents
	}
	return sum
}

// --- events ---

type mockEvents struct {
	templates   map[int64]event.Template
	locations   map[int64]event.Location
	occurrences map[int64]event.Occurrence
	nextID      int64
}

func newMockEvents() *mockEvents {
	return &mockEvents{
		templates:   map[int64]event.Template{},
		locations:   map[int64]event.Location{},
		occurrences: map[int64]event.Occurrence{},
		nextID:      1,
	}
}

func (m *mockEvents) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockEvents) CreateTemplate(_ context.Context, t event.Template) (int64, error) {
	t.ID = m.id()
	m.templates[t.ID] = t
	return t.ID, nil
}

func (m *mockEvents) UpdateTemplate(_ context.Context, t event.Template) error {
	if _, ok := m.templates[t.ID]; !ok {
		return notFound("template", t.ID)
	}
	m.templates[t.ID] = t
	return nil
}

func (m *mockEvents) DeleteTemplate(_ context.Context, id int64) error {
	if _, ok := m.templates[id]; !ok {
		return notFound("template", id)
	}
	delete(m.templates, id)
	return nil
}

func (m *mockEvents) CountOccurrencesOfTemplate(_ context.Context, id int64) (int, error) {
	n := 0
	for _, o := range m.occurrences {
		if o.TemplateID == id {
			n++
		}
	}
	return n, nil
}

func (m *mockEvents) CreateLocation(_ context.Context, l event.Location) (int64, error) {
	for _, existing := range m.locations {
		if existing.Name == l.Name {
			return 0, errUnique
		}
	}
	l.ID = m.id()
	m.locations[l.ID] = l
	return l.ID, nil
}

func (m *mockEvents) UpdateLocation(_ context.Context, l event.Location) error {
	if _, ok := m.locations[l.ID]; !ok {
		return notFound("location", l.ID)
	}
	for _, existing := range m.locations {
		if existing.ID != l.ID && existing.Name == l.Name {
			return errUnique
		}
	}
	m.locations[l.ID] = l
	return nil
}

func (m *mockEvents) DeleteLocation(_ context.Context, id int64) error {
	if _, ok := m.locations[id]; !ok {
		return notFound("location", id)
	}
	delete(m.locations, id)
	return nil
}

func (m *mockEvents) CountOccurrencesAtLocation(_ context.Context, id int64) (int, error) {
	n := 0
	for _, o := range m.occurrences {
		if o.LocationID == id {
			n++
		}
	}
	return n, nil
}

func (m *mockEvents) CreateOccurrence(_ context.Context, o event.Occurrence) (int64, error) {
	if _, ok := m.templates[o.TemplateID]; !ok {
		return 0, notFound("template", o.TemplateID)
	}
	if _, ok := m.locations[o.LocationID]; !ok {
		return 0, notFound("location", o.LocationID)
	}
	o.ID = m.id()
	m.occurrences[o.ID] = o
	return o.ID, nil
}

func (m *mockEvents) UpdateOccurrence(_ context.Context, o event.Occurrence) error {
	if _, ok := m.occurrences[o.ID]; !ok {
		return notFound("occurrence", o.ID)
	}
	m.occurrences[o.ID] = o
	return nil
}

func (m *mockEvents) DeleteOccurrence(_ context.Context, id int64) error {
	if _, ok := m.occurrences[id]; !ok {
		return notFound("occurrence", id)
	}
	delete(m.occurrences, id)
	return nil
}

// GetOccurrenceView joins in memory; Seats is filled by the registrations mock
// when one is attached.
func (m *mockEvents) GetOccurrenceView(_ context.Context, id int64) (eventStore.OccurrenceView, error) {
	o, ok := m.occurrences[id]
	if !ok {
		return eventStore.OccurrenceView{}, notFound("occurrence", id)
	}
	return eventStore.OccurrenceView{
		Occurrence: o,
		Template:   m.templates[o.TemplateID],
		Location:   m.locations[o.LocationID],
	}, nil
}

// --- registrations ---

type mockRegistrations struct {
	rows   map[int64]registration.Registration
	nextID int64
}

func newMockRegistrations(seed ...registration.Registration) *mockRegistrations {
	m := &mockRegistrations{rows: map[int64]registration.Registration{}, nextID: 1}
	for _, r := range seed {
		m.rows[r.ID] = r
		if r.ID >= m.nextID {
			m.nextID = r.ID + 1
		}
	}
	return m
}

func (m *mockRegistrations) GetByID(_ context.Context, id int64) (registration.Registration, error) {
	r, ok := m.rows[id]
	if !ok {
		return registration.Registration{}, notFound("registration", id)
	}
	return r, nil
}

func (m *mockRegistrations) Find(_ context.Context, pid, oid int64) (registration.Registration, error) {
	for _, r := range m.rows {
		if r.ParticipantID == pid && r.OccurrenceID == oid {
			return r, nil
		}
	}
	return registration.Registration{}, notFound("registration", pid)
}

func (m *mockRegistrations) CreateWithinCapacity(_ context.Context, r registration.Registration, capacity int) (int64, error) {
	held := 0
	for _, existing := range m.rows {
		if existing.ParticipantID == r.ParticipantID && existing.OccurrenceID == r.OccurrenceID {
			return 0, errUnique
		}
		if existing.OccurrenceID == r.OccurrenceID && existing.HoldsSeat() {
			held++
		}
	}
	if capacity > 0 && held >= capacity {
		return 0, registrationStore.ErrFull
	}
	r.ID = m.nextID
	m.nextID++
	m.rows[r.ID] = r
	return r.ID, nil
}

func (m *mockRegistrations) UpdateStatus(_ context.Context, id int64, status string) error {
	r, ok := m.rows[id]
	if !ok {
		return notFound("registration", id)
	}
	r.Status = status
	m.rows[id] = r
	return nil
}

func (m *mockRegistrations) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return notFound("registration", id)
	}
	delete(m.rows, id)
	return nil
}

func (m *mockRegistrations) Count(_ context.Context, filter registrationStore.ListFilter) (int, error) {
	n := 0
	for _, r := range m.rows {
		if filter.OccurrenceID != 0 && r.OccurrenceID != filter.OccurrenceID {
			continue
		}
		if filter.ParticipantID != 0 && r.ParticipantID != filter.ParticipantID {
			continue
		}
		n++
	}
	return n, nil
}

// --- surveys ---

type mockSurveys struct {
	rows      map[int64]survey.Survey
	responses map[int64][]survey.Response
	nextID    int64
	// skipPrecheck makes ExistsForRegistration lie, to exercise the unique backstop.
	skipPrecheck bool
}

func newMockSurveys() *mockSurveys {
	return &mockSurveys{rows: map[int64]survey.Survey{}, responses: map[int64][]survey.Response{}, nextID: 1}
}

func (m *mockSurveys) Create(_ context.Context, s survey.Survey, responses []survey.Response) (int64, error) {
	for _, existing := range m.rows {
		if existing.RegistrationID == s.RegistrationID {
			return 0, errUnique
		}
	}
	s.ID = m.nextID
	m.nextID++
	m.rows[s.ID] = s
	m.responses[s.ID] = responses
	return s.ID, nil
}

func (m *mockSurveys) ExistsForRegistration(_ context.Context, registrationID int64) (bool, error) {
	if m.skipPrecheck {
		return false, nil
	}
	for _, s := range m.rows {
		if s.RegistrationID == registrationID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockSurveys) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return notFound("survey", id)
	}
	delete(m.rows, id)
	delete(m.responses, id)
	return nil
}

// --- outbox and notifications ---

type mockOutbox struct {
	rows map[string]outbox.Entry
}

func newMockOutbox() *mockOutbox {
	return &mockOutbox{rows: map[string]outbox.Entry{}}
}

func (m *mockOutbox) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	e, ok := m.rows[id]
	if !ok {
		return outbox.Entry{}, notFound("outbox entry", id)
	}
	return e, nil
}

func (m *mockOutbox) Save(_ context.Context, e outbox.Entry) error {
	m.rows[e.ID] = e
	return nil
}

func (m *mockOutbox) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, e := range m.rows {
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type recordingNotifier struct {
	sent []EmailPayload
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg EmailPayload) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

var errBoom = errors.New("boom")

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
