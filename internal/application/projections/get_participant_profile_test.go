package projections

import (
	"context"
	"errors"
	"testing"

	donationStore "ellarises/internal/adapters/storage/donation"
	milestoneStore "ellarises/internal/adapters/storage/milestone"
	registrationStore "ellarises/internal/adapters/storage/registration"
	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/donation"
	"ellarises/internal/domain/milestone"
	"ellarises/internal/domain/registration"
)

func profileDeps() GetParticipantProfileDeps {
	return GetParticipantProfileDeps{
		Participants: &mockParticipants{rows: people(2)},
		Milestones: &mockMilestones{rows: []milestoneStore.Owned{
			{Milestone: milestone.Milestone{ParticipantID: 1, Number: 1, Title: "First recital", AchievedOn: fixedTime}},
			{Milestone: milestone.Milestone{ParticipantID: 2, Number: 1, Title: "Scholarship", AchievedOn: fixedTime}},
		}},
		Donations: &mockDonations{rows: []donationStore.Owned{
			{Donation: donation.Donation{ParticipantID: 1, Number: 1, AmountCents: 5000, DonatedOn: fixedTime}},
			{Donation: donation.Donation{ParticipantID: 1, Number: 2, AmountCents: 2500, DonatedOn: fixedTime}},
		}},
		Registrations: &mockRegistrations{rows: []registrationStore.View{
			{Registration: registration.Registration{ID: 9, ParticipantID: 1, OccurrenceID: 3, Status: registration.StatusConfirmed}, EventName: "Summit"},
			{Registration: registration.Registration{ID: 10, ParticipantID: 2, OccurrenceID: 3, Status: registration.StatusConfirmed}, EventName: "Summit"},
		}},
	}
}

// TestQueryGetParticipantProfile verifies only the participant's own rows are gathered.
func TestQueryGetParticipantProfile(t *testing.T) {
	profile, err := QueryGetParticipantProfile(context.Background(), 1, profileDeps())
	if err != nil {
		t.Fatalf("QueryGetParticipantProfile: %v", err)
	}
	if profile.Participant.ID != 1 {
		t.Errorf("participant = %d", profile.Participant.ID)
	}
	if len(profile.Milestones) != 1 || len(profile.Donations) != 2 || len(profile.Registrations) != 1 {
		t.Errorf("got %d milestones, %d donations, %d registrations; want 1, 2, 1",
			len(profile.Milestones), len(profile.Donations), len(profile.Registrations))
	}
}

// TestQueryGetParticipantProfile_NotFound verifies a missing participant is NotFound.
func TestQueryGetParticipantProfile_NotFound(t *testing.T) {
	_, err := QueryGetParticipantProfile(context.Background(), 99, profileDeps())
	if apperr.KindOf(err) != apperr.KindNotFound || apperr.Message(err) != "Participant not found" {
		t.Errorf("err = %v", err)
	}
}

// TestQueryGetParticipantProfile_ChildError verifies a failing child list fails the whole profile.
func TestQueryGetParticipantProfile_ChildError(t *testing.T) {
	deps := profileDeps()
	deps.Donations = &mockDonations{err: errBoom}
	_, err := QueryGetParticipantProfile(context.Background(), 1, deps)
	if apperr.KindOf(err) != apperr.KindStore || !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want store error wrapping boom", err)
	}
}

// TestQueryGetParticipantProfile_NoRegistrationStore verifies registrations are optional.
func TestQueryGetParticipantProfile_NoRegistrationStore(t *testing.T) {
	deps := profileDeps()
	deps.Registrations = nil
	profile, err := QueryGetParticipantProfile(context.Background(), 1, deps)
	if err != nil {
		t.Fatalf("QueryGetParticipantProfile: %v", err)
	}
	if profile.Registrations != nil {
		t.Errorf("registrations = %v, want nil", profile.Registrations)
	}
}

// TestQueryGetParticipantMilestones verifies the milestone-only view.
func TestQueryGetParticipantMilestones(t *testing.T) {
	profile, err := QueryGetParticipantMilestones(context.Background(), 2, profileDeps())
	if err != nil {
		t.Fatalf("QueryGetParticipantMilestones: %v", err)
	}
	if len(profile.Milestones) != 1 || profile.Milestones[0].Title != "Scholarship" {
		t.Errorf("milestones = %+v", profile.Milestones)
	}
	if profile.Donations != nil {
		t.Errorf("donations should not load: %+v", profile.Donations)
	}
}
