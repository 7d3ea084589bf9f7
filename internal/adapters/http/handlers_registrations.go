package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"ellarises/internal/adapters/http/middleware"
	"ellarises/internal/adapters/storage"
	registrationStore "ellarises/internal/adapters/storage/registration"
	"ellarises/internal/application/apperr"
	"ellarises/internal/application/listutil"
	"ellarises/internal/application/orchestrators"
	"ellarises/internal/application/projections"
	"ellarises/internal/domain/registration"
	"ellarises/internal/domain/survey"
)

// registerData is the model of the register page. Registration is set once
// the participant holds a registration for the occurrence.
type registerData struct {
	Occurrence   projections.OccurrenceRow
	Registration *registration.Registration
	SurveyTaken  bool
}

func (s *Server) registerPage(w http.ResponseWriter, r *http.Request, status int, formErr error) {
	sess, _ := middleware.SessionFromContext(r.Context())
	id, ok := pathID(r, "occurrenceID")
	if !ok {
		s.badPath(w, r, "Event")
		return
	}
	row, err := projections.QueryGetOccurrence(r.Context(), id, s.now(), s.listEventsDeps())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := registerData{Occurrence: row}
	reg, err := s.stores.Registrations.Find(r.Context(), sess.ParticipantID, id)
	switch {
	case err == nil:
		data.Registration = &reg
		if data.SurveyTaken, err = s.stores.Surveys.ExistsForRegistration(r.Context(), reg.ID); err != nil {
			s.fail(w, r, loadError(err, "Registration"))
			return
		}
	case !errors.Is(err, storage.ErrNotFound):
		s.fail(w, r, loadError(err, "Registration"))
		return
	}
	p := page{Title: row.Template.Name, Data: data}
	if formErr != nil {
		s.failForm(w, r, formErr, &formPage{"register.html", p})
		return
	}
	s.render(w, r, status, "register.html", p)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.registerPage(w, r, http.StatusOK, nil)
}

// handleRegister signs the session's participant up. The participant always
// comes from the session, never from the form.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	id, ok := pathID(r, "occurrenceID")
	if !ok {
		s.badPath(w, r, "Event")
		return
	}
	_, err := orchestrators.ExecuteRegister(r.Context(), orchestrators.RegisterInput{
		ParticipantID: sess.ParticipantID,
		OccurrenceID:  id,
	}, s.registrationDeps())
	if err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			s.registerPage(w, r, http.StatusBadRequest, err)
			return
		}
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/register/%d", id), http.StatusSeeOther)
}

// --- Surveys taken by participants ---

type surveyFormData struct {
	Registration registrationStore.View
	MinScore     int
	MaxScore     int
	Scores       []int
	Recommend    []int
}

// ownRegistration loads a registration that belongs to the session's
// participant. Anyone else's registration reads as missing.
func (s *Server) ownRegistration(r *http.Request) (registrationStore.View, error) {
	sess, _ := middleware.SessionFromContext(r.Context())
	id, ok := pathID(r, "registrationID")
	if !ok {
		return registrationStore.View{}, apperr.NotFound("Registration not found")
	}
	view, err := projections.QueryGetRegistration(r.Context(), id, projections.ListRegistrationsDeps{Registrations: s.stores.Registrations})
	if err != nil {
		return registrationStore.View{}, err
	}
	if view.ParticipantID != sess.ParticipantID {
		return registrationStore.View{}, apperr.NotFound("Registration not found")
	}
	return view, nil
}

func surveyForm(reg registrationStore.View) surveyFormData {
	data := surveyFormData{Registration: reg, MinScore: survey.MinScore, MaxScore: survey.MaxScore}
	for n := survey.MinScore; n <= survey.MaxScore; n++ {
		data.Scores = append(data.Scores, n)
	}
	for n := survey.MinRecommendation; n <= survey.MaxRecommendation; n++ {
		data.Recommend = append(data.Recommend, n)
	}
	return data
}

func (s *Server) handleSurveyForm(w http.ResponseWriter, r *http.Request) {
	reg, err := s.ownRegistration(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p := page{Title: "Survey: " + reg.EventName, Data: surveyForm(reg)}
	if reg.HasSurvey {
		p.Error = apperr.Message(orchestrators.ErrSurveyTaken)
	}
	s.render(w, r, http.StatusOK, "survey_form.html", p)
}

func (s *Server) handleSubmitSurvey(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	reg, err := s.ownRegistration(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	f := r.PostForm
	_, err = orchestrators.ExecuteSubmitSurvey(r.Context(), orchestrators.SurveyInput{
		RegistrationID: reg.ID,
		ParticipantID:  sess.ParticipantID,
		Satisfaction:   f.Get("satisfaction"),
		Usefulness:     f.Get("usefulness"),
		Instructor:     f.Get("instructor"),
		Recommendation: f.Get("recommendation"),
		Comments:       f.Get("comments"),
		Questions:      f["question"],
		Answers:        f["answer"],
	}, s.surveyDeps())
	if err != nil {
		s.failForm(w, r, err, &formPage{"survey_form.html", page{Title: "Survey: " + reg.EventName, Form: f, Data: surveyForm(reg)}})
		return
	}
	s.render(w, r, http.StatusOK, "survey_thanks.html", page{Title: "Thank you", Data: reg})
}

// --- Registrations (manager) ---

func (s *Server) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryListRegistrations(r.Context(), listutil.Parse(r.URL.Query()),
		projections.ListRegistrationsDeps{Registrations: s.stores.Registrations})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "registrations.html", page{Title: "Registrations", Data: result})
}

type registrationFormData struct {
	Registration registrationStore.View
	Statuses     []string
}

func (s *Server) registrationForm(w http.ResponseWriter, r *http.Request, form url.Values, formErr error) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Registration")
		return
	}
	view, err := projections.QueryGetRegistration(r.Context(), id, projections.ListRegistrationsDeps{Registrations: s.stores.Registrations})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if form == nil {
		form = url.Values{}
		form.Set("status", view.Status)
	}
	p := page{Title: "Edit registration", Form: form, Data: registrationFormData{Registration: view, Statuses: registration.ValidStatuses}}
	if formErr != nil {
		s.failForm(w, r, formErr, &formPage{"registration_form.html", p})
		return
	}
	s.render(w, r, http.StatusOK, "registration_form.html", p)
}

func (s *Server) handleEditRegistrationForm(w http.ResponseWriter, r *http.Request) {
	s.registrationForm(w, r, nil, nil)
}

func (s *Server) handleEditRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Registration")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	input := orchestrators.RegistrationStatusInput{Status: r.PostForm.Get("status")}
	if err := orchestrators.ExecuteUpdateRegistrationStatus(r.Context(), id, input, s.registrationDeps()); err != nil {
		if apperr.KindOf(err) == apperr.KindValidation {
			s.registrationForm(w, r, r.PostForm, err)
			return
		}
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/viewRegistrations", http.StatusSeeOther)
}

func (s *Server) handleDeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Registration")
		return
	}
	if err := orchestrators.ExecuteDeleteRegistration(r.Context(), id, s.registrationDeps()); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/viewRegistrations", http.StatusSeeOther)
}

// --- Surveys (listing is for any logged-in user, the rest is manager only) ---

func (s *Server) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryListSurveys(r.Context(), listutil.Parse(r.URL.Query()),
		projections.ListSurveysDeps{Surveys: s.stores.Surveys})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "surveys.html", page{Title: "Surveys", Data: result})
}

func (s *Server) handleSurveyDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Survey")
		return
	}
	detail, err := projections.QueryGetSurvey(r.Context(), id, projections.ListSurveysDeps{Surveys: s.stores.Surveys})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "survey.html", page{Title: "Survey", Data: detail})
}

func (s *Server) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.badPath(w, r, "Survey")
		return
	}
	if err := orchestrators.ExecuteDeleteSurvey(r.Context(), id, s.surveyDeps()); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/viewSurveys", http.StatusSeeOther)
}
