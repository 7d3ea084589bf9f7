// Package outbox models side effects (outgoing email) that are recorded in the
// database first and delivered later, so a provider outage never fails a request.
package outbox

import (
	"errors"
	"time"
)

// Status values
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// ActionEmail is the only action type this system emits.
const ActionEmail = "email"

// DefaultMaxAttempts bounds delivery attempts per entry.
const DefaultMaxAttempts = 5

// Domain errors
var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrNoCreatedAt     = errors.New("created_at must be set")
	ErrTerminal        = errors.New("entry is finished and cannot be retried")
)

// Entry is one queued side effect.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string // JSON
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // provider message id once delivered
	ErrorMessage    string
}

// NewEntry builds a pending entry.
func NewEntry(id, actionType, payload string, now time.Time) Entry {
	return Entry{
		ID:          id,
		ActionType:  actionType,
		Payload:     payload,
		Status:      StatusPending,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
	}
}

// Validate checks that the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid; MaxAttempts defaulted when unset
func (e *Entry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.CreatedAt.IsZero() {
		return ErrNoCreatedAt
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}

// IsTerminal reports whether no further delivery will be attempted.
func (e *Entry) IsTerminal() bool {
	switch e.Status {
	case StatusDone, StatusAbandoned:
		return true
	case StatusFailed:
		return e.Attempts >= e.MaxAttempts
	}
	return false
}

// MarkAttempt records the start of a delivery attempt.
// POST: Attempts incremented, LastAttemptedAt = now, status retrying
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess records a delivered entry.
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records a failed attempt. The entry stays retrying until attempts run out.
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// MarkAbandoned stops further attempts at a manager's request.
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// NextRetryDelay is base * 2^attempts, capped at max.
func (e *Entry) NextRetryDelay(base, max time.Duration) time.Duration {
	if e.Attempts >= 30 {
		return max
	}
	delay := base * time.Duration(1<<e.Attempts)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// Due reports whether the backoff window since the last attempt has passed.
func (e *Entry) Due(now time.Time, base, max time.Duration) bool {
	if e.LastAttemptedAt.IsZero() {
		return true
	}
	return !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(base, max)))
}
