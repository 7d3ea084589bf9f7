package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ellarises/internal/adapters/storage"
	eventStore "ellarises/internal/adapters/storage/event"
	registrationStore "ellarises/internal/adapters/storage/registration"
	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/participant"
	"ellarises/internal/domain/registration"
)

// OccurrenceViewer loads an occurrence with its template, location and seat count.
type OccurrenceViewer interface {
	GetOccurrenceView(ctx context.Context, id int64) (eventStore.OccurrenceView, error)
}

// RegistrationStore defines the store interface needed by the registration orchestrators.
type RegistrationStore interface {
	GetByID(ctx context.Context, id int64) (registration.Registration, error)
	Find(ctx context.Context, participantID, occurrenceID int64) (registration.Registration, error)
	CreateWithinCapacity(ctx context.Context, r registration.Registration, capacity int) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

// SurveyChecker reports whether a registration already has its survey.
type SurveyChecker interface {
	ExistsForRegistration(ctx context.Context, registrationID int64) (bool, error)
}

// ParticipantGetter loads one participant.
type ParticipantGetter interface {
	GetByID(ctx context.Context, id int64) (participant.Participant, error)
}

// RegistrationDeps holds dependencies for the registration orchestrators.
type RegistrationDeps struct {
	Occurrences   OccurrenceViewer
	Registrations RegistrationStore
	Surveys       SurveyChecker
	Participants  ParticipantGetter // confirmation emails only
	Notifier      Notifier          // optional
	Now           func() time.Time
}

// RegisterInput identifies who registers for what. Both ids come from the
// session and the path, never from the form body.
type RegisterInput struct {
	ParticipantID int64
	OccurrenceID  int64
}

var (
	ErrAlreadyRegistered  = apperr.Validation("You are already registered for this event")
	ErrRegistrationClosed = apperr.Validation("Registration for this event has closed")
	ErrEventFull          = apperr.Validation("This event is full")
	ErrRegistrationInUse  = apperr.Validation("Cannot delete a registration that has a survey")
)

// ExecuteRegister signs a participant up for an occurrence.
// PRE: input.ParticipantID is the logged-in user's linked participant
// POST: A confirmed registration exists, or the occurrence is unchanged
// INVARIANT: Seats held never exceed the occurrence's effective capacity
func ExecuteRegister(ctx context.Context, input RegisterInput, deps RegistrationDeps) (int64, error) {
	if input.ParticipantID <= 0 {
		return 0, apperr.Validation("Create your participant profile before registering")
	}
	view, err := deps.Occurrences.GetOccurrenceView(ctx, input.OccurrenceID)
	if err != nil {
		return 0, storeFailure(err, "Event", "load event")
	}
	now := deps.Now()
	if !view.RegistrationOpen(now) {
		return 0, ErrRegistrationClosed
	}

	_, err = deps.Registrations.Find(ctx, input.ParticipantID, input.OccurrenceID)
	switch {
	case err == nil:
		return 0, ErrAlreadyRegistered
	case !errors.Is(err, storage.ErrNotFound):
		return 0, apperr.Store("Unable to register", err)
	}

	r := registration.Registration{
		ParticipantID: input.ParticipantID,
		OccurrenceID:  input.OccurrenceID,
		Status:        registration.StatusConfirmed,
		CreatedAt:     now,
	}
	if err := r.Validate(); err != nil {
		return 0, invalid(err)
	}
	id, err := deps.Registrations.CreateWithinCapacity(ctx, r, view.Capacity())
	switch {
	case errors.Is(err, registrationStore.ErrFull):
		slog.Info("registration_event", "event", "occurrence_full", "occurrence_id", input.OccurrenceID)
		return 0, ErrEventFull
	case storage.IsUniqueViolation(err):
		return 0, ErrAlreadyRegistered
	case err != nil:
		return 0, storeFailure(err, "Event", "register")
	}
	slog.Info("registration_event", "event", "registered", "registration_id", id,
		"participant_id", input.ParticipantID, "occurrence_id", input.OccurrenceID)

	if deps.Participants != nil {
		if p, err := deps.Participants.GetByID(ctx, input.ParticipantID); err == nil {
			notify(ctx, deps.Notifier, confirmationEmail(p, view))
		}
	}
	return id, nil
}

func confirmationEmail(p participant.Participant, view eventStore.OccurrenceView) EmailPayload {
	body := fmt.Sprintf("Hi %s,\n\nYou are registered for **%s** on %s at %s.\n\n",
		p.FirstName, view.Template.Name, view.StartsAt.Format("Monday, January 2 at 3:04 PM"), view.Location.Name)
	if view.Template.Description != "" {
		body += view.Template.Description + "\n\n"
	}
	body += "See you there,\n\nElla Rises"
	return EmailPayload{
		To:      p.Email,
		Subject: "You're registered: " + view.Template.Name,
		Body:    body,
	}
}

// RegistrationStatusInput carries the edit-registration form.
type RegistrationStatusInput struct {
	Status string `validate:"required,oneof=requested confirmed attended cancelled no_show"`
}

// ExecuteUpdateRegistrationStatus changes a registration's status.
// A cancelled registration stops holding a seat.
func ExecuteUpdateRegistrationStatus(ctx context.Context, id int64, input RegistrationStatusInput, deps RegistrationDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	if err := deps.Registrations.UpdateStatus(ctx, id, input.Status); err != nil {
		return storeFailure(err, "Registration", "update registration")
	}
	slog.Info("registration_event", "event", "status_changed", "registration_id", id, "status", input.Status)
	return nil
}

// ExecuteDeleteRegistration removes a registration that has no survey.
// POST: Row removed, or a validation error when a survey references it
func ExecuteDeleteRegistration(ctx context.Context, id int64, deps RegistrationDeps) error {
	taken, err := deps.Surveys.ExistsForRegistration(ctx, id)
	if err != nil {
		return apperr.Store("Unable to delete registration", err)
	}
	if taken {
		return ErrRegistrationInUse
	}
	if err := deps.Registrations.Delete(ctx, id); err != nil {
		return storeFailure(err, "Registration", "delete registration")
	}
	slog.Info("registration_event", "event", "registration_deleted", "registration_id", id)
	return nil
}
