// Package event holds event templates, the venues they run at, and their
// scheduled occurrences.
package event

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength        = 150
	MaxDescriptionLength = 10000
)

// TimeLayout is the HTML datetime-local layout used by the forms.
const TimeLayout = "2006-01-02T15:04"

// Event types
const (
	TypeWorkshop  = "workshop"
	TypeSummit    = "summit"
	TypeMentoring = "mentoring"
	TypeRecital   = "recital"
)

// Recurrence patterns
const (
	RecurrenceNone    = "none"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
	RecurrenceAnnual  = "annual"
)

var (
	ValidTypes       = []string{TypeWorkshop, TypeSummit, TypeMentoring, TypeRecital}
	ValidRecurrences = []string{RecurrenceNone, RecurrenceWeekly, RecurrenceMonthly, RecurrenceAnnual}
)

// Domain errors
var (
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrNameTooLong        = errors.New("name cannot exceed 150 characters")
	ErrDescriptionTooLong = errors.New("description cannot exceed 10000 characters")
	ErrInvalidType        = errors.New("type must be one of: workshop, summit, mentoring, recital")
	ErrInvalidRecurrence  = errors.New("recurrence must be one of: none, weekly, monthly, annual")
	ErrNegativeCapacity   = errors.New("capacity cannot be negative")
	ErrNoTemplate         = errors.New("occurrence must reference an event template")
	ErrNoLocation         = errors.New("occurrence must reference a location")
	ErrNoStart            = errors.New("start time is required")
	ErrEndBeforeStart     = errors.New("end time must be after start time")
	ErrDeadlineAfterStart = errors.New("registration deadline cannot be after the start time")
)

// Template is reusable event metadata. Description is Markdown.
type Template struct {
	ID              int64
	Name            string
	Type            string
	Description     string
	Recurrence      string
	DefaultCapacity int
}

// Validate checks if the Template has valid data.
// PRE: Template struct is populated
// POST: Returns nil if valid, error otherwise
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if len(t.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if len(t.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !contains(ValidTypes, t.Type) {
		return ErrInvalidType
	}
	if !contains(ValidRecurrences, t.Recurrence) {
		return ErrInvalidRecurrence
	}
	if t.DefaultCapacity < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// Location is a venue with a seating capacity.
type Location struct {
	ID       int64
	Name     string
	Capacity int
}

// Validate checks if the Location has valid data.
func (l *Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	if len(l.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if l.Capacity < 0 {
		return ErrNegativeCapacity
	}
	return nil
}

// Occurrence is one scheduled run of a Template at a Location.
// A zero RegistrationDeadline means registration stays open until the start.
type Occurrence struct {
	ID                   int64
	TemplateID           int64
	LocationID           int64
	StartsAt             time.Time
	EndsAt               time.Time
	RegistrationDeadline time.Time
}

// Validate checks if the Occurrence has valid data.
// PRE: Occurrence struct is populated
// POST: Returns nil if valid, error otherwise
func (o *Occurrence) Validate() error {
	if o.TemplateID <= 0 {
		return ErrNoTemplate
	}
	if o.LocationID <= 0 {
		return ErrNoLocation
	}
	if o.StartsAt.IsZero() {
		return ErrNoStart
	}
	if !o.EndsAt.IsZero() && !o.EndsAt.After(o.StartsAt) {
		return ErrEndBeforeStart
	}
	if !o.RegistrationDeadline.IsZero() && o.RegistrationDeadline.After(o.StartsAt) {
		return ErrDeadlineAfterStart
	}
	return nil
}

// RegistrationClosesAt is the instant after which registration is refused.
func (o *Occurrence) RegistrationClosesAt() time.Time {
	if o.RegistrationDeadline.IsZero() {
		return o.StartsAt
	}
	return o.RegistrationDeadline
}

// RegistrationOpen reports whether now is before the registration cutoff.
func (o *Occurrence) RegistrationOpen(now time.Time) bool {
	return now.Before(o.RegistrationClosesAt())
}

// EffectiveCapacity is the location's capacity when set, otherwise the
// template's default. Zero means unlimited.
func EffectiveCapacity(t Template, l Location) int {
	if l.Capacity > 0 {
		return l.Capacity
	}
	return t.DefaultCapacity
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
