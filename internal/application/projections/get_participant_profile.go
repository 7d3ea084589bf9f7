package projections

import (
	"context"

	"golang.org/x/sync/errgroup"

	registrationStore "ellarises/internal/adapters/storage/registration"
	"ellarises/internal/domain/donation"
	"ellarises/internal/domain/milestone"
	"ellarises/internal/domain/participant"
)

// profileRegistrationLimit caps the registrations shown on a profile.
const profileRegistrationLimit = 50

// ParticipantProfile is a participant with everything that belongs to them.
type ParticipantProfile struct {
	Participant   participant.Participant
	Milestones    []milestone.Milestone
	Donations     []donation.Donation
	Registrations []registrationStore.View
}

// GetParticipantProfileDeps holds dependencies for QueryGetParticipantProfile.
type GetParticipantProfileDeps struct {
	Participants  ParticipantStore
	Milestones    MilestoneStore
	Donations     DonationStore
	Registrations RegistrationStore // optional: nil skips registrations
}

// QueryGetParticipantProfile loads a participant and their milestones,
// donations and registrations.
// PRE: id > 0
// POST: A missing participant is NotFound; child lists load concurrently
func QueryGetParticipantProfile(ctx context.Context, id int64, deps GetParticipantProfileDeps) (ParticipantProfile, error) {
	p, err := deps.Participants.GetByID(ctx, id)
	if err != nil {
		return ParticipantProfile{}, loadFailure(err, "Participant")
	}
	profile := ParticipantProfile{Participant: p}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile.Milestones, err = deps.Milestones.ListByParticipant(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		profile.Donations, err = deps.Donations.ListByParticipant(gctx, id)
		return err
	})
	if deps.Registrations != nil {
		g.Go(func() error {
			var err error
			profile.Registrations, err = deps.Registrations.List(gctx, registrationStore.ListFilter{
				ParticipantID: id,
				Limit:         profileRegistrationLimit,
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return ParticipantProfile{}, loadFailure(err, "Participant")
	}
	return profile, nil
}

// QueryGetParticipantMilestones loads a participant and their milestones only.
func QueryGetParticipantMilestones(ctx context.Context, id int64, deps GetParticipantProfileDeps) (ParticipantProfile, error) {
	p, err := deps.Participants.GetByID(ctx, id)
	if err != nil {
		return ParticipantProfile{}, loadFailure(err, "Participant")
	}
	ms, err := deps.Milestones.ListByParticipant(ctx, id)
	if err != nil {
		return ParticipantProfile{}, loadFailure(err, "Milestones")
	}
	return ParticipantProfile{Participant: p, Milestones: ms}, nil
}
