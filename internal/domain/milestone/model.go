package milestone

import (
	"errors"
	"strings"
	"time"
)

// MaxTitleLength caps the milestone title.
const MaxTitleLength = 200

// DateLayout is the form and storage layout for milestone dates.
const DateLayout = "2006-01-02"

// Domain errors
var (
	ErrNoParticipant = errors.New("milestone must belong to a participant")
	ErrEmptyTitle    = errors.New("milestone title cannot be empty")
	ErrTitleTooLong  = errors.New("milestone title cannot exceed 200 characters")
	ErrNoDate        = errors.New("milestone date is required")
)

// Milestone is an achievement owned by one participant. Number is assigned by
// the store as one more than the participant's highest existing number and is
// never reused, so deleting a milestone leaves a gap rather than renumbering.
type Milestone struct {
	ParticipantID int64
	Number        int
	Title         string
	AchievedOn    time.Time
}

// Validate checks if the Milestone has valid data. Number is not checked
// because it is assigned on insert.
// PRE: Milestone struct is populated
// POST: Returns nil if valid, error otherwise
func (m *Milestone) Validate() error {
	if m.ParticipantID <= 0 {
		return ErrNoParticipant
	}
	if strings.TrimSpace(m.Title) == "" {
		return ErrEmptyTitle
	}
	if len(m.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if m.AchievedOn.IsZero() {
		return ErrNoDate
	}
	return nil
}
