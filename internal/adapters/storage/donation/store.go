package donation

import (
	"context"

	domain "ellarises/internal/domain/donation"
)

// Store persists participant donations. Every write also refreshes the owner's
// cached total_donations_cents in the same transaction.
type Store interface {
	Add(ctx context.Context, d domain.Donation) (domain.Donation, error)
	Get(ctx context.Context, participantID int64, number int) (domain.Donation, error)
	Update(ctx context.Context, d domain.Donation) error
	Delete(ctx context.Context, participantID int64, number int) error
	ListByParticipant(ctx context.Context, participantID int64) ([]domain.Donation, error)
	List(ctx context.Context, filter ListFilter) ([]Owned, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	Sum(ctx context.Context, filter ListFilter) (int64, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Search string // matches owner name or email
	Limit  int
	Offset int
}

// Owned is a donation with its owner's name, for listings.
type Owned struct {
	domain.Donation
	FirstName string
	LastName  string
	Email     string
}
