package registration

import (
	"context"
	"errors"
	"time"

	domain "ellarises/internal/domain/registration"
)

// ErrFull is returned by CreateWithinCapacity when no seat is left.
var ErrFull = errors.New("event occurrence is full")

// Store persists registrations.
type Store interface {
	GetByID(ctx context.Context, id int64) (domain.Registration, error)
	GetView(ctx context.Context, id int64) (View, error)
	Find(ctx context.Context, participantID, occurrenceID int64) (domain.Registration, error)
	// CreateWithinCapacity inserts r only while fewer than capacity seats are
	// held. capacity 0 means unlimited.
	CreateWithinCapacity(ctx context.Context, r domain.Registration, capacity int) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]View, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Search        string // matches participant name or event name
	ParticipantID int64
	OccurrenceID  int64
	Limit         int
	Offset        int
}

// View is a registration with the names needed to display it.
type View struct {
	domain.Registration
	FirstName string
	LastName  string
	Email     string
	EventName string
	StartsAt  time.Time
	HasSurvey bool
}
