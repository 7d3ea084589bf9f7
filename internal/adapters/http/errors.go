package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ellarises/internal/adapters/http/middleware"
	"ellarises/internal/adapters/storage"
	"ellarises/internal/application/apperr"
)

// formPage names the template to re-render when a submitted form is rejected.
type formPage struct {
	name string
	p    page
}

// fail is the single mapping from an application error to a response.
// Validation is 400 and re-renders the form when there is one, NotFound is
// 404 and Store is 500. A store failure's cause is logged and never shown.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.failForm(w, r, err, nil)
}

func (s *Server) failForm(w http.ResponseWriter, r *http.Request, err error, form *formPage) {
	msg := apperr.Message(err)
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		if form != nil {
			form.p.Error = msg
			s.render(w, r, http.StatusBadRequest, form.name, form.p)
			return
		}
		s.render(w, r, http.StatusBadRequest, "error.html", page{Title: "Not allowed", Error: msg, Data: backLink(r)})
	case apperr.KindNotFound:
		s.render(w, r, http.StatusNotFound, "not_found.html", page{Title: "Not found", Error: msg, Data: backLink(r)})
	default:
		slog.Error("internal_error", "error", err.Error(), "path", r.URL.Path, "request_id", middleware.RequestID(r.Context()))
		s.render(w, r, http.StatusInternalServerError, "error.html", page{Title: "Something went wrong", Error: msg, Data: backLink(r)})
	}
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "not_found.html", page{Title: "Not found"})
}

// badPath answers a malformed path parameter the way a missing row is answered.
func (s *Server) badPath(w http.ResponseWriter, r *http.Request, what string) {
	s.fail(w, r, apperr.NotFound(what+" not found"))
}

// loadError maps a failed store read made directly by a handler.
func loadError(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Store("Unable to load "+strings.ToLower(what), err)
}

// pathID reads a positive integer path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	return n, err == nil && n > 0
}

// listings maps a route's first path segment to the listing it belongs to.
var listings = map[string]string{
	"addPart": "/viewParticipants", "editPart": "/viewParticipants", "deletePart": "/viewParticipants",
	"participants": "/viewParticipants", "createParticipant": "/",
	"milestones": "/viewMilestones", "addMilestone": "/viewMilestones", "addMilestoneGlobal": "/viewMilestones",
	"editMilestone": "/viewMilestones", "deleteMilestone": "/viewMilestones",
	"addDonation": "/viewDonations", "addDonationGlobal": "/viewDonations",
	"editDonation": "/viewDonations", "deleteDonation": "/viewDonations",
	"addEvent": "/viewEvents", "editEvent": "/viewEvents", "deleteEvent": "/viewEvents",
	"addOccurrence": "/viewEvents", "editOccurrence": "/viewEvents", "deleteOccurrence": "/viewEvents",
	"eventQR": "/viewEvents", "register": "/viewEvents",
	"addLocation": "/viewLocations", "editLocation": "/viewLocations", "deleteLocation": "/viewLocations",
	"editRegistration": "/viewRegistrations", "deleteRegistration": "/viewRegistrations",
	"takeSurvey": "/viewEvents", "surveys": "/viewSurveys", "deleteSurvey": "/viewSurveys",
	"addUser": "/viewUsers", "editUser": "/viewUsers", "deleteUser": "/viewUsers",
	"admin": "/admin/outbox",
}

// backLink is the listing a failed request falls back to.
func backLink(r *http.Request) string {
	first, _, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if l, ok := listings[first]; ok {
		return l
	}
	return "/"
}
