package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ellarises/internal/adapters/storage"
	participantStore "ellarises/internal/adapters/storage/participant"
	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/participant"
	"ellarises/internal/domain/user"
)

// ParticipantStore defines the store interface needed by the participant orchestrators.
type ParticipantStore interface {
	GetByID(ctx context.Context, id int64) (participant.Participant, error)
	GetByEmail(ctx context.Context, email string) (participant.Participant, error)
	Create(ctx context.Context, p participant.Participant) (int64, error)
	Update(ctx context.Context, p participant.Participant) error
	Delete(ctx context.Context, id int64) error
	Dependents(ctx context.Context, id int64) (participantStore.Dependents, error)
}

// UserLinker points a user row at a participant.
type UserLinker interface {
	LinkParticipant(ctx context.Context, userID, participantID int64) error
}

// ParticipantDeps holds dependencies for the participant orchestrators.
type ParticipantDeps struct {
	Participants ParticipantStore
	Users        UserLinker
	Now          func() time.Time
}

// ParticipantInput carries the participant form. Names and email are required;
// everything else is optional contact and demographic detail.
type ParticipantInput struct {
	FirstName        string `validate:"required"`
	LastName         string `validate:"required"`
	Email            string `validate:"required,email"`
	Phone            string
	DateOfBirth      string `validate:"omitempty,datetime=2006-01-02"`
	Role             string `validate:"omitempty,oneof=participant volunteer donor mentor"`
	City             string
	State            string
	Zip              string
	SchoolOrEmployer string
	FieldOfInterest  string
}

// OwnParticipantInput is a logged-in user creating their own participant record.
// The email always comes from the session, never from the form.
type OwnParticipantInput struct {
	UserID int64
	Email  string
	ParticipantInput
}

func (in ParticipantInput) toParticipant() (participant.Participant, error) {
	dob, err := parseOptionalDate(in.DateOfBirth, "Date of birth")
	if err != nil {
		return participant.Participant{}, err
	}
	role := in.Role
	if role == "" {
		role = participant.RoleParticipant
	}
	p := participant.Participant{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Email:            user.NormalizeEmail(in.Email),
		Phone:            in.Phone,
		DateOfBirth:      dob,
		Role:             role,
		City:             in.City,
		State:            in.State,
		Zip:              in.Zip,
		SchoolOrEmployer: in.SchoolOrEmployer,
		FieldOfInterest:  in.FieldOfInterest,
	}
	if err := p.Validate(); err != nil {
		return participant.Participant{}, invalid(err)
	}
	return p, nil
}

// ExecuteCreateParticipant adds a participant after checking the email is free.
// PRE: none
// POST: Returns the new id; nothing is inserted when validation or the email check fails
// INVARIANT: No two participants share an email
func ExecuteCreateParticipant(ctx context.Context, input ParticipantInput, deps ParticipantDeps) (int64, error) {
	if err := checkInput(input); err != nil {
		return 0, err
	}
	p, err := input.toParticipant()
	if err != nil {
		return 0, err
	}
	if err := participantEmailFree(ctx, deps.Participants, p.Email); err != nil {
		return 0, err
	}
	p.CreatedAt = deps.Now()

	id, err := deps.Participants.Create(ctx, p)
	if storage.IsUniqueViolation(err) {
		return 0, ErrEmailInUse
	}
	if err != nil {
		return 0, apperr.Store("Unable to add participant", err)
	}
	slog.Info("participant_event", "event", "participant_created", "participant_id", id)
	return id, nil
}

// ExecuteUpdateParticipant edits a participant. The duplicate-email lookup
// only runs when the email changed.
// POST: Row updated; the cached donation total is left alone
func ExecuteUpdateParticipant(ctx context.Context, id int64, input ParticipantInput, deps ParticipantDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	current, err := deps.Participants.GetByID(ctx, id)
	if err != nil {
		return storeFailure(err, "Participant", "load participant")
	}
	p, err := input.toParticipant()
	if err != nil {
		return err
	}
	if p.Email != current.Email {
		if err := participantEmailFree(ctx, deps.Participants, p.Email); err != nil {
			return err
		}
	}
	p.ID = id

	err = deps.Participants.Update(ctx, p)
	if storage.IsUniqueViolation(err) {
		return ErrEmailInUse
	}
	if err != nil {
		return storeFailure(err, "Participant", "update participant")
	}
	return nil
}

// ExecuteDeleteParticipant removes a participant that owns nothing.
// POST: Row removed and linked users unlinked, or a validation error naming what still references it
func ExecuteDeleteParticipant(ctx context.Context, id int64, deps ParticipantDeps) error {
	owned, err := deps.Participants.Dependents(ctx, id)
	if err != nil {
		return apperr.Store("Unable to delete participant", err)
	}
	if owned.Any() {
		return apperr.Validation("Cannot delete a participant who still has " + describeDependents(owned))
	}
	if err := deps.Participants.Delete(ctx, id); err != nil {
		return storeFailure(err, "Participant", "delete participant")
	}
	slog.Info("participant_event", "event", "participant_deleted", "participant_id", id)
	return nil
}

// ExecuteCreateOwnParticipant creates the participant record for the logged-in
// user and links it. An existing participant with the user's email is linked
// instead of creating a duplicate.
// POST: Returns the participant id now linked to input.UserID
func ExecuteCreateOwnParticipant(ctx context.Context, input OwnParticipantInput, deps ParticipantDeps) (int64, error) {
	input.ParticipantInput.Email = input.Email
	if err := checkInput(input.ParticipantInput); err != nil {
		return 0, err
	}

	existing, err := deps.Participants.GetByEmail(ctx, input.Email)
	switch {
	case err == nil:
		if err := deps.Users.LinkParticipant(ctx, input.UserID, existing.ID); err != nil {
			return 0, storeFailure(err, "User", "link participant")
		}
		slog.Info("participant_linked", "user_id", input.UserID, "participant_id", existing.ID, "via", "create_participant")
		return existing.ID, nil
	case !errors.Is(err, storage.ErrNotFound):
		return 0, apperr.Store("Unable to create participant", err)
	}

	id, err := ExecuteCreateParticipant(ctx, input.ParticipantInput, deps)
	if err != nil {
		return 0, err
	}
	if err := deps.Users.LinkParticipant(ctx, input.UserID, id); err != nil {
		return 0, storeFailure(err, "User", "link participant")
	}
	slog.Info("participant_linked", "user_id", input.UserID, "participant_id", id, "via", "create_participant")
	return id, nil
}

// ExecuteLinkParticipant finds a participant with the user's email and links it
// to the user row. It returns 0 with a nil error when no participant exists.
// POST: users.participant_id set when a participant was found
func ExecuteLinkParticipant(ctx context.Context, userID int64, email string, deps ParticipantDeps) (int64, error) {
	p, err := deps.Participants.GetByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Store("Unable to load your participant record", err)
	}
	if err := deps.Users.LinkParticipant(ctx, userID, p.ID); err != nil {
		return 0, apperr.Store("Unable to load your participant record", err)
	}
	slog.Info("participant_linked", "user_id", userID, "participant_id", p.ID, "via", "email_match")
	return p.ID, nil
}

func participantEmailFree(ctx context.Context, participants ParticipantStore, email string) error {
	_, err := participants.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailInUse
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return apperr.Store("Unable to check the email", err)
	}
}

func describeDependents(d participantStore.Dependents) string {
	var parts []string
	add := func(n int, noun string) {
		if n > 0 {
			parts = append(parts, plural(n, noun))
		}
	}
	add(d.Milestones, "milestone")
	add(d.Donations, "donation")
	add(d.Registrations, "registration")
	if len(parts) <= 1 {
		return strings.Join(parts, "")
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}
