package projections

import (
	"context"
	"errors"
	"strings"

	"ellarises/internal/adapters/storage"
	donationStore "ellarises/internal/adapters/storage/donation"
	eventStore "ellarises/internal/adapters/storage/event"
	milestoneStore "ellarises/internal/adapters/storage/milestone"
	participantStore "ellarises/internal/adapters/storage/participant"
	registrationStore "ellarises/internal/adapters/storage/registration"
	surveyStore "ellarises/internal/adapters/storage/survey"
	userStore "ellarises/internal/adapters/storage/user"
	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/donation"
	"ellarises/internal/domain/event"
	"ellarises/internal/domain/milestone"
	"ellarises/internal/domain/participant"
	"ellarises/internal/domain/survey"
	"ellarises/internal/domain/user"
)

// ParticipantStore is the participant read surface.
type ParticipantStore interface {
	GetByID(ctx context.Context, id int64) (participant.Participant, error)
	List(ctx context.Context, filter participantStore.ListFilter) ([]participant.Participant, error)
	Count(ctx context.Context, filter participantStore.ListFilter) (int, error)
}

// MilestoneStore is the milestone read surface.
type MilestoneStore interface {
	ListByParticipant(ctx context.Context, participantID int64) ([]milestone.Milestone, error)
	List(ctx context.Context, filter milestoneStore.ListFilter) ([]milestoneStore.Owned, error)
	Count(ctx context.Context, filter milestoneStore.ListFilter) (int, error)
}

// DonationStore is the donation read surface.
type DonationStore interface {
	ListByParticipant(ctx context.Context, participantID int64) ([]donation.Donation, error)
	List(ctx context.Context, filter donationStore.ListFilter) ([]donationStore.Owned, error)
	Count(ctx context.Context, filter donationStore.ListFilter) (int, error)
	Sum(ctx context.Context, filter donationStore.ListFilter) (int64, error)
}

// EventStore is the event read surface.
type EventStore interface {
	ListTemplates(ctx context.Context) ([]event.Template, error)
	ListLocations(ctx context.Context) ([]event.Location, error)
	GetOccurrenceView(ctx context.Context, id int64) (eventStore.OccurrenceView, error)
	ListOccurrences(ctx context.Context, filter eventStore.ListFilter) ([]eventStore.OccurrenceView, error)
	CountOccurrences(ctx context.Context, filter eventStore.ListFilter) (int, error)
}

// RegistrationStore is the registration read surface.
type RegistrationStore interface {
	GetView(ctx context.Context, id int64) (registrationStore.View, error)
	List(ctx context.Context, filter registrationStore.ListFilter) ([]registrationStore.View, error)
	Count(ctx context.Context, filter registrationStore.ListFilter) (int, error)
}

// SurveyStore is the survey read surface.
type SurveyStore interface {
	GetByID(ctx context.Context, id int64) (surveyStore.View, error)
	Responses(ctx context.Context, surveyID int64) ([]survey.Response, error)
	List(ctx context.Context, filter surveyStore.ListFilter) ([]surveyStore.View, error)
	Count(ctx context.Context, filter surveyStore.ListFilter) (int, error)
	BucketCounts(ctx context.Context) (surveyStore.BucketCounts, error)
}

// UserStore is the user read surface.
type UserStore interface {
	List(ctx context.Context, filter userStore.ListFilter) ([]user.User, error)
	Count(ctx context.Context, filter userStore.ListFilter) (int, error)
}

// loadFailure maps a store error onto the error kinds the web layer renders.
func loadFailure(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return apperr.Store("Unable to load "+strings.ToLower(what), err)
}
