package web

import (
	"net/http"
	"net/url"
	"strconv"

	"ellarises/internal/adapters/http/middleware"
	"ellarises/internal/application/listutil"
	"ellarises/internal/application/orchestrators"
	"ellarises/internal/application/projections"
	"ellarises/internal/domain/participant"
)

// participantRoles feeds the role select and filter.
var participantRoles = []string{participant.RoleParticipant, participant.RoleVolunteer, participant.RoleDonor, participant.RoleMentor}

func participantInput(f url.Values) orchestrators.ParticipantInput {
	return orchestrators.ParticipantInput{
		FirstName:        f.Get("part_first_name"),
		LastName:         f.Get("part_last_name"),
		Email:            f.Get("part_email"),
		Phone:            f.Get("part_phone"),
		DateOfBirth:      f.Get("part_dob"),
		Role:             f.Get("part_role"),
		City:             f.Get("part_city"),
		State:            f.Get("part_state"),
		Zip:              f.Get("part_zip"),
		SchoolOrEmployer: f.Get("part_school"),
		FieldOfInterest:  f.Get("part_interest"),
	}
}

func participantForm(p participant.Participant) url.Values {
	f := url.Values{}
	f.Set("part_first_name", p.FirstName)
	f.Set("part_last_name", p.LastName)
	f.Set("part_email", p.Email)
	f.Set("part_phone", p.Phone)
	if !p.DateOfBirth.IsZero() {
		f.Set("part_dob", p.DateOfBirth.Format(participant.DateLayout))
	}
	f.Set("part_role", p.Role)
	f.Set("part_city", p.City)
	f.Set("part_state", p.State)
	f.Set("part_zip", p.Zip)
	f.Set("part_school", p.SchoolOrEmployer)
	f.Set("part_interest", p.FieldOfInterest)
	return f
}

// participantFormData is the model of the participant form pages.
type participantFormData struct {
	Action    string
	Roles     []string
	OwnRecord bool // the email comes from the session and is not editable
}

// handleListParticipants serves /viewParticipants and /searchParticipants.
func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := projections.QueryListParticipants(r.Context(), projections.ListParticipantsQuery{
		Params: listutil.Parse(q, projections.ParticipantSortKeys...),
		Role:   q.Get("role"),
	}, projections.ListParticipantsDeps{Participants: s.stores.Participants})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "participants.html", page{
		Title: "Participants",
		Data: struct {
			projections.ListParticipantsResult
			Roles []string
		}{result, participantRoles},
	})
}

func (s *Server) handleParticipantProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Participant")
		return
	}
	profile, err := projections.QueryGetParticipantProfile(r.Context(), id, projections.GetParticipantProfileDeps{
		Participants:  s.stores.Participants,
		Milestones:    s.stores.Milestones,
		Donations:     s.stores.Donations,
		Registrations: s.stores.Registrations,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "participant.html", page{Title: profile.Participant.FullName(), Data: profile})
}

func (s *Server) handleAddParticipantForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "participant_form.html", page{
		Title: "Add participant",
		Data:  participantFormData{Action: "/addPart", Roles: participantRoles},
	})
}

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	id, err := orchestrators.ExecuteCreateParticipant(r.Context(), participantInput(r.PostForm), s.participantDeps())
	if err != nil {
		s.failForm(w, r, err, &formPage{"participant_form.html", page{
			Title: "Add participant",
			Form:  r.PostForm,
			Data:  participantFormData{Action: "/addPart", Roles: participantRoles},
		}})
		return
	}
	http.Redirect(w, r, "/participants/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (s *Server) handleEditParticipantForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Participant")
		return
	}
	p, err := s.stores.Participants.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, loadError(err, "Participant"))
		return
	}
	s.render(w, r, http.StatusOK, "participant_form.html", page{
		Title: "Edit " + p.FullName(),
		Form:  participantForm(p),
		Data:  participantFormData{Action: r.URL.Path, Roles: participantRoles},
	})
}

func (s *Server) handleEditParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Participant")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	if err := orchestrators.ExecuteUpdateParticipant(r.Context(), id, participantInput(r.PostForm), s.participantDeps()); err != nil {
		s.failForm(w, r, err, &formPage{"participant_form.html", page{
			Title: "Edit participant",
			Form:  r.PostForm,
			Data:  participantFormData{Action: r.URL.Path, Roles: participantRoles},
		}})
		return
	}
	http.Redirect(w, r, "/participants/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (s *Server) handleDeleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Participant")
		return
	}
	if err := orchestrators.ExecuteDeleteParticipant(r.Context(), id, s.participantDeps()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.sessions.ClearParticipant(id)
	http.Redirect(w, r, "/viewParticipants", http.StatusSeeOther)
}

// handleCreateOwnParticipantForm lets a logged-in user without a participant
// record create one. Users who already have one are sent to the events.
func (s *Server) handleCreateOwnParticipantForm(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	if sess.ParticipantID != 0 {
		http.Redirect(w, r, "/viewEvents", http.StatusSeeOther)
		return
	}
	form := url.Values{}
	form.Set("part_email", sess.Email)
	s.render(w, r, http.StatusOK, "participant_form.html", page{
		Title: "Create your participant profile",
		Form:  form,
		Data:  participantFormData{Action: "/createParticipant", Roles: participantRoles, OwnRecord: true},
	})
}

func (s *Server) handleCreateOwnParticipant(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	id, err := orchestrators.ExecuteCreateOwnParticipant(r.Context(), orchestrators.OwnParticipantInput{
		UserID:           sess.UserID,
		Email:            sess.Email,
		ParticipantInput: participantInput(r.PostForm),
	}, s.participantDeps())
	if err != nil {
		r.PostForm.Set("part_email", sess.Email)
		s.failForm(w, r, err, &formPage{"participant_form.html", page{
			Title: "Create your participant profile",
			Form:  r.PostForm,
			Data:  participantFormData{Action: "/createParticipant", Roles: participantRoles, OwnRecord: true},
		}})
		return
	}
	s.sessions.SetParticipant(sess.Token, id)
	http.Redirect(w, r, "/viewEvents", http.StatusSeeOther)
}
