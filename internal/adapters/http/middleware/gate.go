package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// AccessDeniedMessage is shown on the login page when an anonymous visitor
// opens a page that needs a login.
const AccessDeniedMessage = "Please log in to access this page"

// Outcome is what the gate does with a request.
type Outcome uint8

const (
	Proceed Outcome = iota
	// RenderLogin shows the login page with status 200.
	RenderLogin
	// Redirect sends the client to Decision.Target.
	Redirect
	// NeedParticipant proceeds once the session has a linked participant.
	NeedParticipant
)

// Decision is the gate's verdict for one request.
type Decision struct {
	Outcome Outcome
	Target  string // set for Redirect
}

// Policy classifies paths into the four access tiers. Paths not listed in
// any tier are manager-only.
type Policy struct {
	Public            []string // exact paths anyone may open
	PublicPrefixes    []string
	LoggedIn          []string // exact paths for any logged-in user
	LoggedInPrefixes  []string
	ParticipantPrefix []string // paths that also need a linked participant
}

// DefaultPolicy is the access policy of the application's routes.
var DefaultPolicy = Policy{
	Public:         []string{"/", "/about", "/login", "/logout", "/signup", "/donate", "/privacy", "/healthz"},
	PublicPrefixes: []string{"/static/"},
	LoggedIn: []string{
		"/viewParticipants", "/searchParticipants",
		"/viewMilestones", "/searchMilestones",
		"/viewDonations", "/searchDonations",
		"/viewEvents", "/searchEvents",
		"/viewSurveys", "/searchSurveys",
		"/createParticipant",
	},
	LoggedInPrefixes:  []string{"/milestones/"},
	ParticipantPrefix: []string{"/register/", "/takeSurvey/"},
}

// Decide returns the outcome for path given the session, if any. It has no
// side effects.
// INVARIANT: An anonymous request never gets Proceed outside the public tier
func (p Policy) Decide(path string, s Session, loggedIn bool) Decision {
	switch {
	case contains(p.Public, path) || hasAnyPrefix(path, p.PublicPrefixes):
		return Decision{Outcome: Proceed}
	case contains(p.LoggedIn, path) || hasAnyPrefix(path, p.LoggedInPrefixes):
		if !loggedIn {
			return Decision{Outcome: RenderLogin}
		}
		return Decision{Outcome: Proceed}
	case hasAnyPrefix(path, p.ParticipantPrefix):
		if !loggedIn {
			return Decision{Outcome: RenderLogin}
		}
		if s.ParticipantID == 0 {
			return Decision{Outcome: NeedParticipant}
		}
		return Decision{Outcome: Proceed}
	}
	switch {
	case !loggedIn:
		return Decision{Outcome: Redirect, Target: "/login"}
	case !s.IsManager():
		return Decision{Outcome: Redirect, Target: "/"}
	}
	return Decision{Outcome: Proceed}
}

// ParticipantLinker finds a participant with the user's email and links it to
// the user row. It returns 0 and a nil error when there is none.
type ParticipantLinker interface {
	LinkParticipant(ctx context.Context, userID int64, email string) (int64, error)
}

// ParticipantLinkerFunc adapts a function to ParticipantLinker.
type ParticipantLinkerFunc func(ctx context.Context, userID int64, email string) (int64, error)

// LinkParticipant calls f.
func (f ParticipantLinkerFunc) LinkParticipant(ctx context.Context, userID int64, email string) (int64, error) {
	return f(ctx, userID, email)
}

// GateHooks render the gate's non-redirect outcomes.
type GateHooks struct {
	// RenderLogin writes the login page with msg and status 200.
	RenderLogin func(w http.ResponseWriter, r *http.Request, msg string)
	// Fail writes the generic error page for a failed participant lookup.
	Fail func(w http.ResponseWriter, r *http.Request, err error)
}

// CreateParticipantPath is where users without a participant record are sent.
const CreateParticipantPath = "/createParticipant"

// Gate enforces policy on every request. For NeedParticipant it looks up a
// participant by the session email, stores the link on the user row and the
// session, and proceeds; with no participant it redirects to
// CreateParticipantPath.
func Gate(policy Policy, sessions *SessionStore, linker ParticipantLinker, hooks GateHooks) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, loggedIn := SessionFromContext(r.Context())
			d := policy.Decide(r.URL.Path, s, loggedIn)
			switch d.Outcome {
			case RenderLogin:
				slog.Info("auth_denied", "path", r.URL.Path, "reason", "anonymous")
				hooks.RenderLogin(w, r, AccessDeniedMessage)
				return
			case Redirect:
				slog.Info("auth_denied", "path", r.URL.Path, "redirect", d.Target)
				http.Redirect(w, r, d.Target, http.StatusSeeOther)
				return
			case NeedParticipant:
				id, err := linker.LinkParticipant(r.Context(), s.UserID, s.Email)
				if err != nil {
					hooks.Fail(w, r, err)
					return
				}
				if id == 0 {
					http.Redirect(w, r, CreateParticipantPath, http.StatusSeeOther)
					return
				}
				sessions.SetParticipant(s.Token, id)
				s.ParticipantID = id
				r = r.WithContext(ContextWithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
