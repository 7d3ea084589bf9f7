package registration

import (
	"errors"
	"time"
)

// Status values
const (
	StatusRequested = "requested"
	StatusConfirmed = "confirmed"
	StatusAttended  = "attended"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// ValidStatuses lists every accepted status in display order.
var ValidStatuses = []string{StatusRequested, StatusConfirmed, StatusAttended, StatusCancelled, StatusNoShow}

// Domain errors
var (
	ErrNoParticipant = errors.New("registration must reference a participant")
	ErrNoOccurrence  = errors.New("registration must reference an event occurrence")
	ErrInvalidStatus = errors.New("status must be one of: requested, confirmed, attended, cancelled, no_show")
)

// Registration links a participant to one event occurrence.
// At most one registration exists per participant and occurrence.
type Registration struct {
	ID            int64
	ParticipantID int64
	OccurrenceID  int64
	Status        string
	CreatedAt     time.Time
}

// Validate checks if the Registration has valid data.
// PRE: Registration struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Registration) Validate() error {
	if r.ParticipantID <= 0 {
		return ErrNoParticipant
	}
	if r.OccurrenceID <= 0 {
		return ErrNoOccurrence
	}
	if !IsValidStatus(r.Status) {
		return ErrInvalidStatus
	}
	return nil
}

// HoldsSeat reports whether the registration counts against capacity.
func (r *Registration) HoldsSeat() bool {
	return r.Status != StatusCancelled
}

// CanTakeSurvey reports whether a survey may be submitted for this registration.
func (r *Registration) CanTakeSurvey() bool {
	return r.Status != StatusCancelled
}

// IsValidStatus reports whether s is one of ValidStatuses.
func IsValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}
