package user

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Max length constants for user-editable fields.
const (
	MaxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt truncates beyond this
)

// Access levels. Anything that is not a manager is an ordinary user.
const (
	LevelManager = "m"
	LevelUser    = "u"
)

// Lockout policy
const (
	MaxFailedLogins = 5
	LockoutDuration = 15 * time.Minute
)

// PasswordCost is the bcrypt cost used by SetPassword. Tests lower it.
var PasswordCost = 12

// Domain errors
var (
	ErrEmptyEmail       = errors.New("email cannot be empty")
	ErrInvalidEmail     = errors.New("email must contain '@'")
	ErrEmailTooLong     = errors.New("email cannot exceed 254 characters")
	ErrInvalidLevel     = errors.New("level must be 'm' or 'u'")
	ErrEmptyPassword    = errors.New("password cannot be empty")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password cannot exceed 72 bytes")
	ErrWrongPassword    = errors.New("incorrect password")
)

// User is a login identity. ParticipantID is zero when the user has no linked participant.
type User struct {
	ID            int64
	Email         string
	PasswordHash  string
	Level         string
	ParticipantID int64
	CreatedAt     time.Time
	FailedLogins  int
	LockedUntil   time.Time
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeLevel maps any unrecognised level to an ordinary user.
func NormalizeLevel(level string) string {
	if level == LevelManager {
		return LevelManager
	}
	return LevelUser
}

// Validate checks if the User has valid data.
// PRE: User struct is populated
// POST: Returns nil if valid, error otherwise
func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	if len(u.Email) > MaxEmailLength {
		return ErrEmailTooLong
	}
	if !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	if u.Level != LevelManager && u.Level != LevelUser {
		return ErrInvalidLevel
	}
	return nil
}

// SetPassword hashes and stores a password using bcrypt.
// PRE: plaintext is between MinPasswordLength and MaxPasswordLength bytes
// POST: PasswordHash is set to a bcrypt hash
func (u *User) SetPassword(plaintext string) error {
	switch {
	case plaintext == "":
		return ErrEmptyPassword
	case len(plaintext) < MinPasswordLength:
		return ErrPasswordTooShort
	case len(plaintext) > MaxPasswordLength:
		return ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), PasswordCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
// INVARIANT: User fields are not mutated
func (u *User) CheckPassword(plaintext string) error {
	if u.PasswordHash == "" {
		return ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plaintext)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// IsManager reports whether the user holds the manager level.
func (u *User) IsManager() bool {
	return u.Level == LevelManager
}

// HasParticipant reports whether the user is linked to a participant row.
func (u *User) HasParticipant() bool {
	return u.ParticipantID > 0
}

// IsLocked returns true if the user is currently locked out.
// INVARIANT: User fields are not mutated
func (u *User) IsLocked(now time.Time) bool {
	return !u.LockedUntil.IsZero() && now.Before(u.LockedUntil)
}

// RecordFailedLogin increments the failed login counter and locks the user after MaxFailedLogins.
// POST: FailedLogins incremented; LockedUntil set once the limit is reached
func (u *User) RecordFailedLogin(now time.Time) {
	u.FailedLogins++
	if u.FailedLogins >= MaxFailedLogins {
		u.LockedUntil = now.Add(LockoutDuration)
	}
}

// ResetFailedLogins clears the failed login counter and lock.
func (u *User) ResetFailedLogins() {
	u.FailedLogins = 0
	u.LockedUntil = time.Time{}
}
