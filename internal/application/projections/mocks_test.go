package projections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ellarises/internal/adapters/storage"
	donationStore "ellarises/internal/adapters/storage/donation"
	eventStore "ellarises/internal/adapters/storage/event"
	milestoneStore "ellarises/internal/adapters/storage/milestone"
	participantStore "ellarises/internal/adapters/storage/participant"
	registrationStore "ellarises/internal/adapters/storage/registration"
	surveyStore "ellarises/internal/adapters/storage/survey"
	userStore "ellarises/internal/adapters/storage/user"
	"ellarises/internal/domain/donation"
	"ellarises/internal/domain/event"
	"ellarises/internal/domain/milestone"
	"ellarises/internal/domain/participant"
	"ellarises/internal/domain/survey"
	"ellarises/internal/domain/user"
)

var (
	fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	errBoom   = errors.New("boom")
)

func notFound() error { return fmt.Errorf("get: %w", storage.ErrNotFound) }

// page slices rows the way LIMIT/OFFSET would.
func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

type mockParticipants struct {
	rows    []participant.Participant
	err     error
	filters []participantStore.ListFilter
}

func (m *mockParticipants) match(f participantStore.ListFilter) []participant.Participant {
	var out []participant.Participant
	for _, p := range m.rows {
		if f.Role != "" && p.Role != f.Role {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.FirstName+" "+p.LastName+" "+p.Email), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (m *mockParticipants) GetByID(_ context.Context, id int64) (participant.Participant, error) {
	if m.err != nil {
		return participant.Participant{}, m.err
	}
	for _, p := range m.rows {
		if p.ID == id {
			return p, nil
		}
	}
	return participant.Participant{}, notFound()
}

func (m *mockParticipants) List(_ context.Context, f participantStore.ListFilter) ([]participant.Participant, error) {
	m.filters = append(m.filters, f)
	return page(m.match(f), f.Limit, f.Offset), m.err
}

func (m *mockParticipants) Count(_ context.Context, f participantStore.ListFilter) (int, error) {
	return len(m.match(f)), m.err
}

type mockMilestones struct {
	rows []milestoneStore.Owned
	err  error
}

func (m *mockMilestones) ListByParticipant(_ context.Context, pid int64) ([]milestone.Milestone, error) {
	var out []milestone.Milestone
	for _, r := range m.rows {
		if r.ParticipantID == pid {
			out = append(out, r.Milestone)
		}
	}
	return out, m.err
}

func (m *mockMilestones) List(_ context.Context, f milestoneStore.ListFilter) ([]milestoneStore.Owned, error) {
	return page(m.rows, f.Limit, f.Offset), m.err
}

func (m *mockMilestones) Count(context.Context, milestoneStore.ListFilter) (int, error) {
	return len(m.rows), m.err
}

type mockDonations struct {
	rows []donationStore.Owned
	err  error
}

func (m *mockDonations) match(f donationStore.ListFilter) []donationStore.Owned {
	var out []donationStore.Owned
	for _, d := range m.rows {
		if f.Search == "" || strings.Contains(strings.ToLower(d.FirstName+" "+d.LastName+" "+d.Email), strings.ToLower(f.Search)) {
			out = append(out, d)
		}
	}
	return out
}

func (m *mockDonations) ListByParticipant(_ context.Context, pid int64) ([]donation.Donation, error) {
	var out []donation.Donation
	for _, r := range m.rows {
		if r.ParticipantID == pid {
			out = append(out, r.Donation)
		}
	}
	return out, m.err
}

func (m *mockDonations) List(_ context.Context, f donationStore.ListFilter) ([]donationStore.Owned, error) {
	return page(m.match(f), f.Limit, f.Offset), m.err
}

func (m *mockDonations) Count(_ context.Context, f donationStore.ListFilter) (int, error) {
	return len(m.match(f)), m.err
}

func (m *mockDonations) Sum(_ context.Context, f donationStore.ListFilter) (int64, error) {
	var sum int64
	for _, d := range m.match(f) {
		sum += d.AmountCents
	}
	return sum, m.err
}

type mockEvents struct {
	templates   []event.Template
	locations   []event.Location
	occurrences []eventStore.OccurrenceView
	err         error
}

func (m *mockEvents) match(f eventStore.ListFilter) []eventStore.OccurrenceView {
	var out []eventStore.OccurrenceView
	for _, v := range m.occurrences {
		if !f.From.IsZero() && v.StartsAt.Before(f.From) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (m *mockEvents) ListTemplates(context.Context) ([]event.Template, error) {
	return m.templates, m.err
}

func (m *mockEvents) ListLocations(context.Context) ([]event.Location, error) {
	return m.locations, m.err
}

func (m *mockEvents) GetOccurrenceView(_ context.Context, id int64) (eventStore.OccurrenceView, error) {
	for _, v := range m.occurrences {
		if v.ID == id {
			return v, nil
		}
	}
	return eventStore.OccurrenceView{}, notFound()
}

func (m *mockEvents) ListOccurrences(_ context.Context, f eventStore.ListFilter) ([]eventStore.OccurrenceView, error) {
	return page(m.match(f), f.Limit, f.Offset), m.err
}

func (m *mockEvents) CountOccurrences(_ context.Context, f eventStore.ListFilter) (int, error) {
	return len(m.match(f)), m.err
}

type mockRegistrations struct {
	rows []registrationStore.View
	err  error
}

func (m *mockRegistrations) match(f registrationStore.ListFilter) []registrationStore.View {
	var out []registrationStore.View
	for _, r := range m.rows {
		if f.ParticipantID != 0 && r.ParticipantID != f.ParticipantID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (m *mockRegistrations) GetView(_ context.Context, id int64) (registrationStore.View, error) {
	for _, r := range m.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return registrationStore.View{}, notFound()
}

func (m *mockRegistrations) List(_ context.Context, f registrationStore.ListFilter) ([]registrationStore.View, error) {
	return page(m.match(f), f.Limit, f.Offset), m.err
}

func (m *mockRegistrations) Count(_ context.Context, f registrationStore.ListFilter) (int, error) {
	return len(m.match(f)), m.err
}

type mockSurveys struct {
	rows      []surveyStore.View
	responses map[int64][]survey.Response
	err       error
}

func (m *mockSurveys) GetByID(_ context.Context, id int64) (surveyStore.View, error) {
	for _, s := range m.rows {
		if s.ID == id {
			return s, nil
		}
	}
	return surveyStore.View{}, notFound()
}

func (m *mockSurveys) Responses(_ context.Context, id int64) ([]survey.Response, error) {
	return m.responses[id], m.err
}

func (m *mockSurveys) List(_ context.Context, f surveyStore.ListFilter) ([]surveyStore.View, error) {
	return page(m.rows, f.Limit, f.Offset), m.err
}

func (m *mockSurveys) Count(context.Context, surveyStore.ListFilter) (int, error) {
	return len(m.rows), m.err
}

func (m *mockSurveys) BucketCounts(context.Context) (surveyStore.BucketCounts, error) {
	var b surveyStore.BucketCounts
	for _, s := range m.rows {
		switch s.NPSBucket {
		case survey.BucketPromoter:
			b.Promoters++
		case survey.BucketPassive:
			b.Passives++
		default:
			b.Detractors++
		}
	}
	return b, m.err
}

type mockUsers struct {
	rows    []user.User
	filters []userStore.ListFilter
}

func (m *mockUsers) match(f userStore.ListFilter) []user.User {
	var out []user.User
	for _, u := range m.rows {
		if f.Level == "" || u.Level == f.Level {
			out = append(out, u)
		}
	}
	return out
}

func (m *mockUsers) List(_ context.Context, f userStore.ListFilter) ([]user.User, error) {
	m.filters = append(m.filters, f)
	return page(m.match(f), f.Limit, f.Offset), nil
}

func (m *mockUsers) Count(_ context.Context, f userStore.ListFilter) (int, error) {
	return len(m.match(f)), nil
}

func people(n int) []participant.Participant {
	rows := make([]participant.Participant, n)
	for i := range rows {
		role := participant.RoleParticipant
		if i%2 == 1 {
			role = participant.RoleDonor
		}
		rows[i] = participant.Participant{
			ID:        int64(i + 1),
			FirstName: fmt.Sprintf("First%d", i+1),
			LastName:  "Rivera",
			Email:     fmt.Sprintf("p%d@example.org", i+1),
			Role:      role,
		}
	}
	return rows
}

func occurrenceAt(id int64, startsAt time.Time, capacity, seats int) eventStore.OccurrenceView {
	return eventStore.OccurrenceView{
		Occurrence: event.Occurrence{ID: id, TemplateID: 1, LocationID: 1, StartsAt: startsAt},
		Template:   event.Template{ID: 1, Name: "Folklorico Workshop", Type: event.TypeWorkshop, DefaultCapacity: capacity},
		Location:   event.Location{ID: 1, Name: "Studio A"},
		Seats:      seats,
	}
}
