package milestone

import (
	"context"

	domain "ellarises/internal/domain/milestone"
)

// Store persists participant milestones.
type Store interface {
	// Add assigns the next per-participant number and inserts the milestone.
	Add(ctx context.Context, m domain.Milestone) (domain.Milestone, error)
	Get(ctx context.Context, participantID int64, number int) (domain.Milestone, error)
	Update(ctx context.Context, m domain.Milestone) error
	Delete(ctx context.Context, participantID int64, number int) error
	ListByParticipant(ctx context.Context, participantID int64) ([]domain.Milestone, error)
	List(ctx context.Context, filter ListFilter) ([]Owned, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Search string // matches title or owner name
	Limit  int
	Offset int
}

// Owned is a milestone with its owner's name, for listings.
type Owned struct {
	domain.Milestone
	FirstName string
	LastName  string
}
