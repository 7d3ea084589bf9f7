package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ellarises/internal/adapters/storage"
	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/user"
)

// UserStoreForLogin defines the store interface needed by Login.
type UserStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Update(ctx context.Context, u user.User) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is what the session needs after a successful login.
type LoginResult struct {
	UserID        int64
	Email         string
	Level         string
	ParticipantID int64
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Users UserStoreForLogin
	Now   func() time.Time
}

var (
	ErrInvalidLogin  = apperr.Validation("Invalid login")
	ErrAccountLocked = apperr.Validation("Too many failed attempts. Try again in 15 minutes")
)

// ExecuteLogin checks credentials and returns the identity to store in the session.
// PRE: none
// POST: Returns the user on success; a wrong password is counted toward lockout
// INVARIANT: A locked user cannot log in even with the right password
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := user.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidLogin
	}

	u, err := deps.Users.GetByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "not_found")
		return LoginResult{}, ErrInvalidLogin
	}
	if err != nil {
		return LoginResult{}, apperr.Store("Unable to log in", err)
	}

	now := deps.Now()
	if u.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "email", email, "reason", "locked")
		return LoginResult{}, ErrAccountLocked
	}

	if err := u.CheckPassword(input.Password); err != nil {
		u.RecordFailedLogin(now)
		if err := deps.Users.Update(ctx, u); err != nil {
			slog.Error("internal_error", "op", "record_failed_login", "user_id", u.ID, "error", err.Error())
		}
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "wrong_password", "failed_logins", u.FailedLogins)
		return LoginResult{}, ErrInvalidLogin
	}

	if u.FailedLogins > 0 || !u.LockedUntil.IsZero() {
		u.ResetFailedLogins()
		if err := deps.Users.Update(ctx, u); err != nil {
			slog.Error("internal_error", "op", "reset_failed_logins", "user_id", u.ID, "error", err.Error())
		}
	}

	slog.Info("auth_event", "event", "login_success", "email", email, "level", u.Level)
	return LoginResult{
		UserID:        u.ID,
		Email:         u.Email,
		Level:         u.Level,
		ParticipantID: u.ParticipantID,
	}, nil
}
