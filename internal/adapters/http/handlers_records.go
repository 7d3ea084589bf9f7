package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	participantStore "ellarises/internal/adapters/storage/participant"
	"ellarises/internal/application/apperr"
	"ellarises/internal/application/listutil"
	"ellarises/internal/application/orchestrators"
	"ellarises/internal/application/projections"
	"ellarises/internal/domain/donation"
	"ellarises/internal/domain/milestone"
	"ellarises/internal/domain/participant"
)

// maxParticipantOptions caps the participant select on the global add forms.
const maxParticipantOptions = 500

// recordFormData is the model of the milestone and donation forms. Owner is
// set when the route names the participant; otherwise Options feeds a select.
type recordFormData struct {
	Action  string
	Owner   *participant.Participant
	Options []participant.Participant
	Number  int
}

// recordForm loads what the add and edit forms need for the participant named
// by the path, or every participant for the global forms.
func (s *Server) recordForm(ctx context.Context, r *http.Request) (recordFormData, error) {
	data := recordFormData{Action: r.URL.Path}
	if raw := r.PathValue("participantID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return data, apperr.NotFound("Participant not found")
		}
		p, err := s.stores.Participants.GetByID(ctx, id)
		if err != nil {
			return data, loadError(err, "Participant")
		}
		data.Owner = &p
		return data, nil
	}
	options, err := s.stores.Participants.List(ctx, participantStore.ListFilter{Sort: "name", Limit: maxParticipantOptions})
	if err != nil {
		return data, loadError(err, "Participants")
	}
	data.Options = options
	return data, nil
}

// recordOwner is the participant a record form is about: the path wins over the select.
func recordOwner(r *http.Request) string {
	if raw := r.PathValue("participantID"); raw != "" {
		return raw
	}
	return r.PostForm.Get("participant_id")
}

func recordKey(r *http.Request) (int64, int, bool) {
	pid, ok := pathID(r, "participantID")
	if !ok {
		return 0, 0, false
	}
	number, ok := pathInt(r, "number")
	return pid, number, ok
}

// --- Milestones ---

func (s *Server) handleListMilestones(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryListMilestones(r.Context(), listutil.Parse(r.URL.Query()),
		projections.ListMilestonesDeps{Milestones: s.stores.Milestones})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "milestones.html", page{Title: "Milestones", Data: result})
}

func (s *Server) handleParticipantMilestones(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "participantID")
	if !ok {
		s.badPath(w, r, "Participant")
		return
	}
	profile, err := projections.QueryGetParticipantMilestones(r.Context(), id, projections.GetParticipantProfileDeps{
		Participants: s.stores.Participants,
		Milestones:   s.stores.Milestones,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "participant_milestones.html", page{
		Title: "Milestones for " + profile.Participant.FullName(),
		Data:  profile,
	})
}

// handleAddMilestoneForm serves /addMilestone/{participantID} and /addMilestoneGlobal.
func (s *Server) handleAddMilestoneForm(w http.ResponseWriter, r *http.Request) {
	data, err := s.recordForm(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "milestone_form.html", page{Title: "Add milestone", Data: data})
}

func (s *Server) handleAddMilestone(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	m, err := orchestrators.ExecuteAddMilestone(r.Context(), orchestrators.MilestoneInput{
		Participant: recordOwner(r),
		Title:       r.PostForm.Get("milestone_title"),
		Date:        r.PostForm.Get("milestone_date"),
	}, orchestrators.MilestoneDeps{Milestones: s.stores.Milestones})
	if err != nil {
		s.failRecordForm(w, r, err, "milestone_form.html", "Add milestone")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/milestones/%d", m.ParticipantID), http.StatusSeeOther)
}

func (s *Server) handleEditMilestoneForm(w http.ResponseWriter, r *http.Request) {
	pid, number, ok := recordKey(r)
	if !ok {
		s.badPath(w, r, "Milestone")
		return
	}
	m, err := s.stores.Milestones.Get(r.Context(), pid, number)
	if err != nil {
		s.fail(w, r, loadError(err, "Milestone"))
		return
	}
	data, err := s.recordForm(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data.Number = number
	form := url.Values{}
	form.Set("milestone_title", m.Title)
	form.Set("milestone_date", m.AchievedOn.Format(milestone.DateLayout))
	s.render(w, r, http.StatusOK, "milestone_form.html", page{Title: "Edit milestone", Form: form, Data: data})
}

func (s *Server) handleEditMilestone(w http.ResponseWriter, r *http.Request) {
	pid, number, ok := recordKey(r)
	if !ok {
		s.badPath(w, r, "Milestone")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	err := orchestrators.ExecuteUpdateMilestone(r.Context(), pid, number, orchestrators.MilestoneInput{
		Participant: recordOwner(r),
		Title:       r.PostForm.Get("milestone_title"),
		Date:        r.PostForm.Get("milestone_date"),
	}, orchestrators.MilestoneDeps{Milestones: s.stores.Milestones})
	if err != nil {
		s.failRecordForm(w, r, err, "milestone_form.html", "Edit milestone")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/milestones/%d", pid), http.StatusSeeOther)
}

func (s *Server) handleDeleteMilestone(w http.ResponseWriter, r *http.Request) {
	pid, number, ok := recordKey(r)
	if !ok {
		s.badPath(w, r, "Milestone")
		return
	}
	if err := orchestrators.ExecuteDeleteMilestone(r.Context(), pid, number, orchestrators.MilestoneDeps{Milestones: s.stores.Milestones}); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/milestones/%d", pid), http.StatusSeeOther)
}

// --- Donations ---

func (s *Server) handleListDonations(w http.ResponseWriter, r *http.Request) {
	result, err := projections.QueryListDonations(r.Context(), listutil.Parse(r.URL.Query()),
		projections.ListDonationsDeps{Donations: s.stores.Donations})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "donations.html", page{Title: "Donations", Data: result})
}

// handleAddDonationForm serves /addDonation/{participantID} and /addDonationGlobal.
func (s *Server) handleAddDonationForm(w http.ResponseWriter, r *http.Request) {
	data, err := s.recordForm(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	form := url.Values{}
	form.Set("donation_date", s.now().Format(donation.DateLayout))
	s.render(w, r, http.StatusOK, "donation_form.html", page{Title: "Add donation", Form: form, Data: data})
}

func (s *Server) handleAddDonation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	d, err := orchestrators.ExecuteAddDonation(r.Context(), orchestrators.DonationInput{
		Participant: recordOwner(r),
		Amount:      r.PostForm.Get("donation_amount"),
		Date:        r.PostForm.Get("donation_date"),
	}, s.donationDeps())
	if err != nil {
		s.failRecordForm(w, r, err, "donation_form.html", "Add donation")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/participants/%d", d.ParticipantID), http.StatusSeeOther)
}

func (s *Server) handleEditDonationForm(w http.ResponseWriter, r *http.Request) {
	pid, number, ok := recordKey(r)
	if !ok {
		s.badPath(w, r, "Donation")
		return
	}
	d, err := s.stores.Donations.Get(r.Context(), pid, number)
	if err != nil {
		s.fail(w, r, loadError(err, "Donation"))
		return
	}
	data, err := s.recordForm(r.Context(), r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data.Number = number
	form := url.Values{}
	form.Set("donation_amount", donation.FormatAmount(d.AmountCents))
	form.Set("donation_date", d.DonatedOn.Format(donation.DateLayout))
	s.render(w, r, http.StatusOK, "donation_form.html", page{Title: "Edit donation", Form: form, Data: data})
}

func (s *Server) handleEditDonation(w http.ResponseWriter, r *http.Request) {
	pid, number, ok := recordKey(r)
	if !ok {
		s.badPath(w, r, "Donation")
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	err := orchestrators.ExecuteUpdateDonation(r.Context(), pid, number, orchestrators.DonationInput{
		Participant: recordOwner(r),
		Amount:      r.PostForm.Get("donation_amount"),
		Date:        r.PostForm.Get("donation_date"),
	}, s.donationDeps())
	if err != nil {
		s.failRecordForm(w, r, err, "donation_form.html", "Edit donation")
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/participants/%d", pid), http.StatusSeeOther)
}

func (s *Server) handleDeleteDonation(w http.ResponseWriter, r *http.Request) {
	pid, number, ok := recordKey(r)
	if !ok {
		s.badPath(w, r, "Donation")
		return
	}
	if err := orchestrators.ExecuteDeleteDonation(r.Context(), pid, number, s.donationDeps()); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/participants/%d", pid), http.StatusSeeOther)
}

// failRecordForm re-renders a milestone or donation form with what was submitted.
func (s *Server) failRecordForm(w http.ResponseWriter, r *http.Request, err error, name, title string) {
	data, loadErr := s.recordForm(r.Context(), r)
	if loadErr != nil {
		s.fail(w, r, err)
		return
	}
	data.Number, _ = pathInt(r, "number")
	s.failForm(w, r, err, &formPage{name, page{Title: title, Form: r.PostForm, Data: data}})
}

// --- Public donations ---

func (s *Server) handleDonateForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "donate.html", page{Title: "Donate"})
}

func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	result, err := orchestrators.ExecuteDonate(r.Context(), orchestrators.DonateInput{
		FirstName: r.PostForm.Get("first_name"),
		LastName:  r.PostForm.Get("last_name"),
		Email:     r.PostForm.Get("email"),
		Amount:    r.PostForm.Get("amount"),
	}, s.donationDeps())
	if err != nil {
		s.failForm(w, r, err, &formPage{"donate.html", page{Title: "Donate", Form: r.PostForm}})
		return
	}
	s.render(w, r, http.StatusOK, "donate_thanks.html", page{Title: "Thank you", Data: result})
}
