package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"ellarises/internal/adapters/http/middleware"
	"ellarises/internal/adapters/http/perf"
	donationStore "ellarises/internal/adapters/storage/donation"
	eventStore "ellarises/internal/adapters/storage/event"
	milestoneStore "ellarises/internal/adapters/storage/milestone"
	outboxStore "ellarises/internal/adapters/storage/outbox"
	participantStore "ellarises/internal/adapters/storage/participant"
	registrationStore "ellarises/internal/adapters/storage/registration"
	surveyStore "ellarises/internal/adapters/storage/survey"
	userStore "ellarises/internal/adapters/storage/user"
	"ellarises/internal/application/orchestrators"
)

// requestTimeout bounds every request, and with it every store call it makes.
const requestTimeout = 10 * time.Second

// Stores holds all storage dependencies.
type Stores struct {
	Users         userStore.Store
	Participants  participantStore.Store
	Milestones    milestoneStore.Store
	Donations     donationStore.Store
	Events        eventStore.Store
	Registrations registrationStore.Store
	Surveys       surveyStore.Store
	Outbox        outboxStore.Store
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server. Zero values fall back to safe defaults, except
// CSRFKey: a nil key turns CSRF protection off, which only tests do.
type Options struct {
	SessionSecret      []byte
	SessionTTL         time.Duration
	CSRFKey            []byte
	SecureCookies      bool
	PublicBaseURL      string // absolute links in QR codes
	SlowRequestMs      int
	LoginRatePerMinute int

	Sessions  *middleware.SessionStore       // optional; created when nil
	Limiter   *middleware.RateLimiter        // optional; created when nil
	Collector *perf.Collector                // optional; nil disables timing snapshots
	Outbox    *orchestrators.OutboxProcessor // optional; nil disables manual retry
	DB        Pinger                         // optional; /healthz reports ok without it
	Now       func() time.Time
}

// Server owns the HTTP surface. Everything a handler needs hangs off it;
// per-request state travels in the request context.
type Server struct {
	stores    Stores
	opts      Options
	sessions  *middleware.SessionStore
	cookies   *middleware.CookieCodec
	limiter   *middleware.RateLimiter
	collector *perf.Collector
	notifier  orchestrators.Notifier
	pages     map[string]*template.Template
	now       func() time.Time
	started   time.Time
}

// NewServer parses the templates and prepares the session machinery.
// PRE: every store in stores is set; len(opts.SessionSecret) >= 32
// POST: the returned server is ready for Handler
func NewServer(stores Stores, opts Options) (*Server, error) {
	if len(opts.SessionSecret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = middleware.DefaultSessionTTL
	}
	if opts.SlowRequestMs <= 0 {
		opts.SlowRequestMs = middleware.DefaultSlowRequestMs
	}
	if opts.LoginRatePerMinute <= 0 {
		opts.LoginRatePerMinute = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		stores:    stores,
		opts:      opts,
		sessions:  opts.Sessions,
		cookies:   middleware.NewCookieCodec(opts.SessionSecret, opts.SessionTTL, opts.SecureCookies),
		limiter:   opts.Limiter,
		collector: opts.Collector,
		pages:     pages,
		now:       opts.Now,
		started:   opts.Now(),
	}
	if s.sessions == nil {
		s.sessions = middleware.NewSessionStore(opts.SessionTTL)
	}
	if s.limiter == nil {
		s.limiter = middleware.NewRateLimiter(opts.LoginRatePerMinute, time.Minute)
	}
	if stores.Outbox != nil {
		s.notifier = &orchestrators.OutboxNotifier{Outbox: stores.Outbox, Now: opts.Now}
	}
	return s, nil
}

// Sessions exposes the session store so the caller can sweep it.
func (s *Server) Sessions() *middleware.SessionStore { return s.sessions }

// Handler returns the routed mux wrapped in the middleware chain:
// Timing, SecurityHeaders, RateLimit, Deadline, CSRF, Auth, Gate.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	chain := []func(http.Handler) http.Handler{
		middleware.Timing(s.collector, s.opts.SlowRequestMs),
		middleware.SecurityHeaders,
		middleware.RateLimit(s.limiter, "/login", "/signup", "/donate"),
		middleware.Deadline(requestTimeout),
	}
	if s.opts.CSRFKey != nil {
		chain = append(chain, middleware.CSRF(s.opts.CSRFKey, s.opts.SecureCookies, http.HandlerFunc(s.csrfFailure)))
	}
	chain = append(chain,
		middleware.Auth(s.sessions, s.cookies),
		middleware.Gate(middleware.DefaultPolicy, s.sessions, middleware.ParticipantLinkerFunc(s.linkParticipant), middleware.GateHooks{
			RenderLogin: s.renderLoginPrompt,
			Fail:        s.fail,
		}),
	)
	return middleware.Chain(mux, chain...)
}

func (s *Server) linkParticipant(ctx context.Context, userID int64, email string) (int64, error) {
	return orchestrators.ExecuteLinkParticipant(ctx, userID, email, s.participantDeps())
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Public
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /about", s.handleAbout)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("GET /signup", s.handleSignupForm)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("GET /donate", s.handleDonateForm)
	mux.HandleFunc("POST /donate", s.handleDonate)
	mux.HandleFunc("GET /privacy", s.handlePrivacy)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleNotFound)

	// Logged in
	mux.HandleFunc("GET /viewParticipants", s.handleListParticipants)
	mux.HandleFunc("GET /searchParticipants", s.handleListParticipants)
	mux.HandleFunc("GET /viewMilestones", s.handleListMilestones)
	mux.HandleFunc("GET /searchMilestones", s.handleListMilestones)
	mux.HandleFunc("GET /milestones/{participantID}", s.handleParticipantMilestones)
	mux.HandleFunc("GET /viewDonations", s.handleListDonations)
	mux.HandleFunc("GET /searchDonations", s.handleListDonations)
	mux.HandleFunc("GET /viewEvents", s.handleListEvents)
	mux.HandleFunc("GET /searchEvents", s.handleListEvents)
	mux.HandleFunc("GET /viewSurveys", s.handleListSurveys)
	mux.HandleFunc("GET /searchSurveys", s.handleListSurveys)
	mux.HandleFunc("GET /createParticipant", s.handleCreateOwnParticipantForm)
	mux.HandleFunc("POST /createParticipant", s.handleCreateOwnParticipant)

	// Linked participant
	mux.HandleFunc("GET /register/{occurrenceID}", s.handleRegisterForm)
	mux.HandleFunc("POST /register/{occurrenceID}", s.handleRegister)
	mux.HandleFunc("GET /takeSurvey/{registrationID}", s.handleSurveyForm)
	mux.HandleFunc("POST /takeSurvey/{registrationID}", s.handleSubmitSurvey)

	// Manager: participants
	mux.HandleFunc("GET /addPart", s.handleAddParticipantForm)
	mux.HandleFunc("POST /addPart", s.handleAddParticipant)
	mux.HandleFunc("GET /editPart/{id}", s.handleEditParticipantForm)
	mux.HandleFunc("POST /editPart/{id}", s.handleEditParticipant)
	mux.HandleFunc("POST /deletePart/{id}", s.handleDeleteParticipant)
	mux.HandleFunc("GET /participants/{id}", s.handleParticipantProfile)

	// Manager: milestones
	mux.HandleFunc("GET /addMilestone/{participantID}", s.handleAddMilestoneForm)
	mux.HandleFunc("POST /addMilestone/{participantID}", s.handleAddMilestone)
	mux.HandleFunc("GET /addMilestoneGlobal", s.handleAddMilestoneForm)
	mux.HandleFunc("POST /addMilestoneGlobal", s.handleAddMilestone)
	mux.HandleFunc("GET /editMilestone/{participantID}/{number}", s.handleEditMilestoneForm)
	mux.HandleFunc("POST /editMilestone/{participantID}/{number}", s.handleEditMilestone)
	mux.HandleFunc("POST /deleteMilestone/{participantID}/{number}", s.handleDeleteMilestone)

	// Manager: donations
	mux.HandleFunc("GET /addDonation/{participantID}", s.handleAddDonationForm)
	mux.HandleFunc("POST /addDonation/{participantID}", s.handleAddDonation)
	mux.HandleFunc("GET /addDonationGlobal", s.handleAddDonationForm)
	mux.HandleFunc("POST /addDonationGlobal", s.handleAddDonation)
	mux.HandleFunc("GET /editDonation/{participantID}/{number}", s.handleEditDonationForm)
	mux.HandleFunc("POST /editDonation/{participantID}/{number}", s.handleEditDonation)
	mux.HandleFunc("POST /deleteDonation/{participantID}/{number}", s.handleDeleteDonation)

	// Manager: events
	mux.HandleFunc("GET /addEvent", s.handleAddTemplateForm)
	mux.HandleFunc("POST /addEvent", s.handleAddTemplate)
	mux.HandleFunc("GET /editEvent/{id}", s.handleEditTemplateForm)
	mux.HandleFunc("POST /editEvent/{id}", s.handleEditTemplate)
	mux.HandleFunc("POST /deleteEvent/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("GET /addOccurrence", s.handleAddOccurrenceForm)
	mux.HandleFunc("POST /addOccurrence", s.handleAddOccurrence)
	mux.HandleFunc("GET /editOccurrence/{id}", s.handleEditOccurrenceForm)
	mux.HandleFunc("POST /editOccurrence/{id}", s.handleEditOccurrence)
	mux.HandleFunc("POST /deleteOccurrence/{id}", s.handleDeleteOccurrence)
	mux.HandleFunc("GET /eventQR/{id}", s.handleEventQR)
	mux.HandleFunc("GET /viewLocations", s.handleListLocations)
	mux.HandleFunc("GET /addLocation", s.handleAddLocationForm)
	mux.HandleFunc("POST /addLocation", s.handleAddLocation)
	mux.HandleFunc("GET /editLocation/{id}", s.handleEditLocationForm)
	mux.HandleFunc("POST /editLocation/{id}", s.handleEditLocation)
	mux.HandleFunc("POST /deleteLocation/{id}", s.handleDeleteLocation)

	// Manager: registrations and surveys
	mux.HandleFunc("GET /viewRegistrations", s.handleListRegistrations)
	mux.HandleFunc("GET /searchRegistrations", s.handleListRegistrations)
	mux.HandleFunc("GET /editRegistration/{id}", s.handleEditRegistrationForm)
	mux.HandleFunc("POST /editRegistration/{id}", s.handleEditRegistration)
	mux.HandleFunc("POST /deleteRegistration/{id}", s.handleDeleteRegistration)
	mux.HandleFunc("GET /surveys/{id}", s.handleSurveyDetail)
	mux.HandleFunc("POST /deleteSurvey/{id}", s.handleDeleteSurvey)

	// Manager: users and admin
	mux.HandleFunc("GET /viewUsers", s.handleListUsers)
	mux.HandleFunc("GET /searchUsers", s.handleListUsers)
	mux.HandleFunc("GET /addUser", s.handleAddUserForm)
	mux.HandleFunc("POST /addUser", s.handleAddUser)
	mux.HandleFunc("GET /editUser/{id}", s.handleEditUserForm)
	mux.HandleFunc("POST /editUser/{id}", s.handleEditUser)
	mux.HandleFunc("POST /deleteUser/{id}", s.handleDeleteUser)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /admin/outbox", s.handleOutbox)
	mux.HandleFunc("POST /admin/outbox/{id}/{action}", s.handleOutboxAction)
}

// Dependency bundles for the orchestrators and projections.

func (s *Server) participantDeps() orchestrators.ParticipantDeps {
	return orchestrators.ParticipantDeps{Participants: s.stores.Participants, Users: s.stores.Users, Now: s.now}
}

func (s *Server) userDeps() orchestrators.UserDeps {
	return orchestrators.UserDeps{Users: s.stores.Users, Participants: s.stores.Participants, Now: s.now}
}

func (s *Server) donationDeps() orchestrators.DonationDeps {
	return orchestrators.DonationDeps{
		Donations:    s.stores.Donations,
		Participants: s.stores.Participants,
		Notifier:     s.notifier,
		Now:          s.now,
	}
}

func (s *Server) eventDeps() orchestrators.EventDeps {
	return orchestrators.EventDeps{Events: s.stores.Events, Registrations: s.stores.Registrations}
}

func (s *Server) registrationDeps() orchestrators.RegistrationDeps {
	return orchestrators.RegistrationDeps{
		Occurrences:   s.stores.Events,
		Registrations: s.stores.Registrations,
		Surveys:       s.stores.Surveys,
		Participants:  s.stores.Participants,
		Notifier:      s.notifier,
		Now:           s.now,
	}
}

func (s *Server) surveyDeps() orchestrators.SurveyDeps {
	return orchestrators.SurveyDeps{Surveys: s.stores.Surveys, Registrations: s.stores.Registrations, Now: s.now}
}
