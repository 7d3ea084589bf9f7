package event

import (
	"context"
	"time"

	domain "ellarises/internal/domain/event"
)

// TemplateStore persists event templates.
type TemplateStore interface {
	GetTemplate(ctx context.Context, id int64) (domain.Template, error)
	CreateTemplate(ctx context.Context, t domain.Template) (int64, error)
	UpdateTemplate(ctx context.Context, t domain.Template) error
	DeleteTemplate(ctx context.Context, id int64) error
	ListTemplates(ctx context.Context) ([]domain.Template, error)
	CountOccurrencesOfTemplate(ctx context.Context, id int64) (int, error)
}

// LocationStore persists venues.
type LocationStore interface {
	GetLocation(ctx context.Context, id int64) (domain.Location, error)
	CreateLocation(ctx context.Context, l domain.Location) (int64, error)
	UpdateLocation(ctx context.Context, l domain.Location) error
	DeleteLocation(ctx context.Context, id int64) error
	ListLocations(ctx context.Context) ([]domain.Location, error)
	CountOccurrencesAtLocation(ctx context.Context, id int64) (int, error)
}

// OccurrenceStore persists scheduled occurrences.
type OccurrenceStore interface {
	GetOccurrence(ctx context.Context, id int64) (domain.Occurrence, error)
	GetOccurrenceView(ctx context.Context, id int64) (OccurrenceView, error)
	CreateOccurrence(ctx context.Context, o domain.Occurrence) (int64, error)
	UpdateOccurrence(ctx context.Context, o domain.Occurrence) error
	DeleteOccurrence(ctx context.Context, id int64) error
	ListOccurrences(ctx context.Context, filter ListFilter) ([]OccurrenceView, error)
	CountOccurrences(ctx context.Context, filter ListFilter) (int, error)
}

// Store is the full event persistence surface.
type Store interface {
	TemplateStore
	LocationStore
	OccurrenceStore
}

// ListFilter carries filtering parameters for occurrence listings.
type ListFilter struct {
	Search string    // matches template name or type, or location name
	From   time.Time // only occurrences starting at or after From, when set
	Limit  int
	Offset int
}

// OccurrenceView is an occurrence joined with its template, location and seat count.
type OccurrenceView struct {
	domain.Occurrence
	Template domain.Template
	Location domain.Location
	// Seats counts registrations that are not cancelled.
	Seats int
}

// Capacity is the effective seat limit; zero means unlimited.
func (v OccurrenceView) Capacity() int {
	return domain.EffectiveCapacity(v.Template, v.Location)
}

// SeatsLeft is the remaining capacity, or -1 when unlimited.
func (v OccurrenceView) SeatsLeft() int {
	c := v.Capacity()
	if c == 0 {
		return -1
	}
	if left := c - v.Seats; left > 0 {
		return left
	}
	return 0
}
