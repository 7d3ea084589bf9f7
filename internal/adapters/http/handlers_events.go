package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"

	"ellarises/internal/application/listutil"
	"ellarises/internal/application/orchestrators"
	"ellarises/internal/application/projections"
	"ellarises/internal/domain/event"
)

// qrSize is the edge length of event QR codes in pixels.
const qrSize = 320

func (s *Server) listEventsDeps() projections.ListEventsDeps {
	return projections.ListEventsDeps{Events: s.stores.Events}
}

// handleListEvents serves /viewEvents and /searchEvents. Past occurrences are
// hidden unless past=1.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := projections.QueryListEvents(r.Context(), projections.ListEventsQuery{
		Params:      listutil.Parse(q),
		IncludePast: q.Get("past") == "1",
		Now:         s.now(),
	}, s.listEventsDeps())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "events.html", page{Title: "Events", Data: result})
}

// --- Templates ---

func templateInput(f url.Values) orchestrators.TemplateInput {
	return orchestrators.TemplateInput{
		Name:            f.Get("event_name"),
		Type:            f.Get("event_type"),
		Description:     f.Get("event_description"),
		Recurrence:      f.Get("event_recurrence"),
		DefaultCapacity: f.Get("event_capacity"),
	}
}

func (s *Server) handleAddTemplateForm(w http.ResponseWriter, r *http.Request) {
	form := url.Values{}
	form.Set("event_recurrence", event.RecurrenceNone)
	s.render(w, r, http.StatusOK, "event_form.html", page{Title: "Add event", Form: form, Data: "/addEvent"})
}

func (s *Server) handleAddTemplate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	if _, err := orchestrators.ExecuteCreateTemplate(r.Context(), templateInput(r.PostForm), s.eventDeps()); err != nil {
		s.failForm(w, r, err, &formPage{"event_form.html", page{Title: "Add event", Form: r.PostForm, Data: "/addEvent"}})
		return
	}
	http.Redirect(w, r, "/viewEvents", http.StatusSeeOther)
}

func (s *Server) handleEditTemplateForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Event")
		return
	}
	t, err := s.stores.Events.GetTemplate(r.Context(), id)
	if err != nil {
		s.fail(w, r, loadError(err, "Event"))
		return
	}
	form := url.Values{}
	form.Set("event_name", t.Name)
	form.Set("event_type", t.Type)
	form.Set("event_description", t.Description)
	form.Set("event_recurrence", t.Recurrence)
	if t.DefaultCapacity > 0 {
		form.Set("event_capacity", strconv.Itoa(t.DefaultCapacity))
	}
	s.render(w, r, http.StatusOK, "event_form.html", page{Title: "Edit " + t.Name, Form: form, Data: r.URL.Path})
}

func (s *Server) handleEditTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Event")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	if err := orchestrators.ExecuteUpdateTemplate(r.Context(), id, templateInput(r.PostForm), s.eventDeps()); err != nil {
		s.failForm(w, r, err, &formPage{"event_form.html", page{Title: "Edit event", Form: r.PostForm, Data: r.URL.Path}})
		return
	}
	http.Redirect(w, r, "/viewEvents", http.StatusSeeOther)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Event")
		return
	}
	if err := orchestrators.ExecuteDeleteTemplate(r.Context(), id, s.eventDeps()); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/viewEvents", http.StatusSeeOther)
}

// --- Occurrences ---

type occurrenceFormData struct {
	Action string
	projections.EventFormOptions
}

func occurrenceInput(f url.Values) orchestrators.OccurrenceInput {
	return orchestrators.OccurrenceInput{
		Template:             f.Get("template_id"),
		Location:             f.Get("location_id"),
		StartsAt:             f.Get("starts_at"),
		EndsAt:               f.Get("ends_at"),
		RegistrationDeadline: f.Get("registration_deadline"),
	}
}

func (s *Server) occurrenceForm(w http.ResponseWriter, r *http.Request, status int, title string, form url.Values, err error) {
	options, loadErr := projections.QueryEventFormOptions(r.Context(), s.listEventsDeps())
	if loadErr != nil {
		s.fail(w, r, loadErr)
		return
	}
	p := page{Title: title, Form: form, Data: occurrenceFormData{Action: r.URL.Path, EventFormOptions: options}}
	if err != nil {
		s.failForm(w, r, err, &formPage{"occurrence_form.html", p})
		return
	}
	s.render(w, r, status, "occurrence_form.html", p)
}

func (s *Server) handleAddOccurrenceForm(w http.ResponseWriter, r *http.Request) {
	form := url.Values{}
	form.Set("template_id", r.URL.Query().Get("template"))
	s.occurrenceForm(w, r, http.StatusOK, "Schedule event", form, nil)
}

func (s *Server) handleAddOccurrence(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	if _, err := orchestrators.ExecuteCreateOccurrence(r.Context(), occurrenceInput(r.PostForm), s.eventDeps()); err != nil {
		s.occurrenceForm(w, r, http.StatusBadRequest, "Schedule event", r.PostForm, err)
		return
	}
	http.Redirect(w, r, "/viewEvents", http.StatusSeeOther)
}

func (s *Server) handleEditOccurrenceForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Occurrence")
		return
	}
	o, err := s.stores.Events.GetOccurrence(r.Context(), id)
	if err != nil {
		s.fail(w, r, loadError(err, "Occurrence"))
		return
	}
	form := url.Values{}
	form.Set("template_id", strconv.FormatInt(o.TemplateID, 10))
	form.Set("location_id", strconv.FormatInt(o.LocationID, 10))
	form.Set("starts_at", o.StartsAt.Format(event.TimeLayout))
	if !o.EndsAt.IsZero() {
		form.Set("ends_at", o.EndsAt.Format(event.TimeLayout))
	}
	if !o.RegistrationDeadline.IsZero() {
		form.Set("registration_deadline", o.RegistrationDeadline.Format(event.TimeLayout))
	}
	s.occurrenceForm(w, r, http.StatusOK, "Edit occurrence", form, nil)
}

func (s *Server) handleEditOccurrence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Occurrence")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	if err := orchestrators.ExecuteUpdateOccurrence(r.Context(), id, occurrenceInput(r.PostForm), s.eventDeps()); err != nil {
		s.occurrenceForm(w, r, http.StatusBadRequest, "Edit occurrence", r.PostForm, err)
		return
	}
	http.Redirect(w, r, "/viewEvents", http.StatusSeeOther)
}

func (s *Server) handleDeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Occurrence")
		return
	}
	if err := orchestrators.ExecuteDeleteOccurrence(r.Context(), id, s.eventDeps()); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/viewEvents", http.StatusSeeOther)
}

// handleEventQR writes a PNG QR code pointing at the occurrence's register page.
func (s *Server) handleEventQR(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Event")
		return
	}
	if _, err := projections.QueryGetOccurrence(r.Context(), id, s.now(), s.listEventsDeps()); err != nil {
		s.fail(w, r, err)
		return
	}
	png, err := qrcode.Encode(s.absoluteURL(r, fmt.Sprintf("/register/%d", id)), qrcode.Medium, qrSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="event-%d.png"`, id))
	w.Write(png)
}

// absoluteURL prefixes path with the configured public URL, or with the
// request's own scheme and host when none is configured.
func (s *Server) absoluteURL(r *http.Request, path string) string {
	if base := strings.TrimRight(s.opts.PublicBaseURL, "/"); base != "" {
		return base + path
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}

// --- Locations ---

func locationInput(f url.Values) orchestrators.LocationInput {
	return orchestrators.LocationInput{Name: f.Get("location_name"), Capacity: f.Get("location_capacity")}
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := projections.QueryListLocations(r.Context(), s.listEventsDeps())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "locations.html", page{Title: "Locations", Data: locations})
}

func (s *Server) handleAddLocationForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "location_form.html", page{Title: "Add location", Data: "/addLocation"})
}

func (s *Server) handleAddLocation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	if _, err := orchestrators.ExecuteCreateLocation(r.Context(), locationInput(r.PostForm), s.eventDeps()); err != nil {
		s.failForm(w, r, err, &formPage{"location_form.html", page{Title: "Add location", Form: r.PostForm, Data: "/addLocation"}})
		return
	}
	http.Redirect(w, r, "/viewLocations", http.StatusSeeOther)
}

func (s *Server) handleEditLocationForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Location")
		return
	}
	l, err := s.stores.Events.GetLocation(r.Context(), id)
	if err != nil {
		s.fail(w, r, loadError(err, "Location"))
		return
	}
	form := url.Values{}
	form.Set("location_name", l.Name)
	if l.Capacity > 0 {
		form.Set("location_capacity", strconv.Itoa(l.Capacity))
	}
	s.render(w, r, http.StatusOK, "location_form.html", page{Title: "Edit " + l.Name, Form: form, Data: r.URL.Path})
}

func (s *Server) handleEditLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Location")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	if err := orchestrators.ExecuteUpdateLocation(r.Context(), id, locationInput(r.PostForm), s.eventDeps()); err != nil {
		s.failForm(w, r, err, &formPage{"location_form.html", page{Title: "Edit location", Form: r.PostForm, Data: r.URL.Path}})
		return
	}
	http.Redirect(w, r, "/viewLocations", http.StatusSeeOther)
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Location")
		return
	}
	if err := orchestrators.ExecuteDeleteLocation(r.Context(), id, s.eventDeps()); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/viewLocations", http.StatusSeeOther)
}
