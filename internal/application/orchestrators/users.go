package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ellarises/internal/adapters/storage"
	userStore "ellarises/internal/adapters/storage/user"
	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/participant"
	"ellarises/internal/domain/user"
)

// UserStore defines the store interface needed by the user orchestrators.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (int64, error)
	Update(ctx context.Context, u user.User) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, filter userStore.ListFilter) (int, error)
}

// ParticipantFinder looks up a participant by email.
type ParticipantFinder interface {
	GetByEmail(ctx context.Context, email string) (participant.Participant, error)
}

// UserDeps holds dependencies for the user orchestrators.
type UserDeps struct {
	Users        UserStore
	Participants ParticipantFinder // optional; links a participant with the same email
	Now          func() time.Time
}

// CreateUserInput carries the add-user form.
type CreateUserInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
	Level    string `validate:"required,oneof=m u"`
}

// UpdateUserInput carries the edit-user form. A blank password keeps the current one.
type UpdateUserInput struct {
	ID       int64
	Email    string `validate:"required,email"`
	Password string
	Level    string `validate:"required,oneof=m u"`
}

// SignupInput carries the public signup form.
type SignupInput struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"required,eqfield=Password"`
}

var (
	ErrEmailInUse      = apperr.Validation(MsgEmailInUse)
	ErrDeleteSelf      = apperr.Validation("You cannot delete your own account")
	ErrLastManager     = apperr.Validation("At least one manager account must remain")
	ErrNoManagerConfig = errors.New("MANAGER_EMAIL and MANAGER_PASSWORD are not set")
)

// ExecuteCreateUser adds a user after checking the email is free.
// PRE: none
// POST: User stored with a bcrypt hash, linked to a participant with the same email when one exists
// INVARIANT: No two users share an email
func ExecuteCreateUser(ctx context.Context, input CreateUserInput, deps UserDeps) (int64, error) {
	if err := checkInput(input); err != nil {
		return 0, err
	}
	u := user.User{
		Email:     user.NormalizeEmail(input.Email),
		Level:     input.Level,
		CreatedAt: deps.Now(),
	}
	if err := u.Validate(); err != nil {
		return 0, invalid(err)
	}
	if err := emailFree(ctx, deps.Users, u.Email); err != nil {
		return 0, err
	}
	if err := u.SetPassword(input.Password); err != nil {
		return 0, invalid(err)
	}
	if deps.Participants != nil {
		p, err := deps.Participants.GetByEmail(ctx, u.Email)
		switch {
		case err == nil:
			u.ParticipantID = p.ID
		case !errors.Is(err, storage.ErrNotFound):
			return 0, apperr.Store("Unable to add user", err)
		}
	}

	id, err := deps.Users.Create(ctx, u)
	if storage.IsUniqueViolation(err) {
		return 0, ErrEmailInUse
	}
	if err != nil {
		return 0, apperr.Store("Unable to add user", err)
	}
	slog.Info("auth_event", "event", "user_created", "user_id", id, "level", u.Level)
	return id, nil
}

// ExecuteSignup creates an ordinary user from the public form and returns the
// identity to log in with.
// POST: A level 'u' user exists for the email
func ExecuteSignup(ctx context.Context, input SignupInput, deps UserDeps) (LoginResult, error) {
	if err := checkInput(input); err != nil {
		return LoginResult{}, err
	}
	id, err := ExecuteCreateUser(ctx, CreateUserInput{
		Email:    input.Email,
		Password: input.Password,
		Level:    user.LevelUser,
	}, deps)
	if err != nil {
		return LoginResult{}, err
	}
	u, err := deps.Users.GetByID(ctx, id)
	if err != nil {
		return LoginResult{}, storeFailure(err, "User", "sign up")
	}
	return LoginResult{UserID: u.ID, Email: u.Email, Level: u.Level, ParticipantID: u.ParticipantID}, nil
}

// ExecuteUpdateUser edits a user. The duplicate-email lookup only runs when the
// email actually changed.
// POST: Row updated; the unique constraint still rejects a concurrent duplicate
func ExecuteUpdateUser(ctx context.Context, input UpdateUserInput, deps UserDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	u, err := deps.Users.GetByID(ctx, input.ID)
	if err != nil {
		return storeFailure(err, "User", "load user")
	}

	email := user.NormalizeEmail(input.Email)
	if email != u.Email {
		if err := emailFree(ctx, deps.Users, email); err != nil {
			return err
		}
	}
	if u.IsManager() && input.Level != user.LevelManager {
		if err := keepOneManager(ctx, deps.Users); err != nil {
			return err
		}
	}

	u.Email = email
	u.Level = input.Level
	if err := u.Validate(); err != nil {
		return invalid(err)
	}
	if input.Password != "" {
		if err := u.SetPassword(input.Password); err != nil {
			return invalid(err)
		}
	}

	err = deps.Users.Update(ctx, u)
	if storage.IsUniqueViolation(err) {
		return ErrEmailInUse
	}
	if err != nil {
		return storeFailure(err, "User", "update user")
	}
	slog.Info("auth_event", "event", "user_updated", "user_id", u.ID, "level", u.Level)
	return nil
}

// ExecuteDeleteUser removes a user other than the one acting.
// PRE: actorID is the logged-in manager
// POST: Row removed; the last manager is never removed
func ExecuteDeleteUser(ctx context.Context, id, actorID int64, deps UserDeps) error {
	if id == actorID {
		return ErrDeleteSelf
	}
	u, err := deps.Users.GetByID(ctx, id)
	if err != nil {
		return storeFailure(err, "User", "load user")
	}
	if u.IsManager() {
		if err := keepOneManager(ctx, deps.Users); err != nil {
			return err
		}
	}
	if err := deps.Users.Delete(ctx, id); err != nil {
		return storeFailure(err, "User", "delete user")
	}
	slog.Info("auth_event", "event", "user_deleted", "user_id", id, "by", actorID)
	return nil
}

// ExecuteSeedManager creates the first manager from configuration when no user exists.
// PRE: Database is migrated
// POST: A manager exists when the users table was empty and credentials were given
func ExecuteSeedManager(ctx context.Context, deps UserDeps, email, password string) error {
	n, err := deps.Users.Count(ctx, userStore.ListFilter{})
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if email == "" || password == "" {
		return ErrNoManagerConfig
	}
	if _, err := ExecuteCreateUser(ctx, CreateUserInput{
		Email:    email,
		Password: password,
		Level:    user.LevelManager,
	}, deps); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "manager_seeded", "email", user.NormalizeEmail(email))
	return nil
}

func emailFree(ctx context.Context, users UserStore, email string) error {
	_, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrEmailInUse
	case errors.Is(err, storage.ErrNotFound):
		return nil
	default:
		return apperr.Store("Unable to check the email", err)
	}
}

func keepOneManager(ctx context.Context, users UserStore) error {
	n, err := users.Count(ctx, userStore.ListFilter{Level: user.LevelManager})
	if err != nil {
		return apperr.Store("Unable to check managers", err)
	}
	if n <= 1 {
		return ErrLastManager
	}
	return nil
}
