package outbox

import (
	"context"

	domain "ellarises/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or an error wrapping storage.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an outbox entry (insert or update).
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns entries still awaiting delivery, oldest first.
	// PRE: limit > 0
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListFailed returns entries that ran out of attempts, most recent first.
	// PRE: limit > 0
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListRecent returns entries in any state, newest first.
	// PRE: limit > 0
	ListRecent(ctx context.Context, limit int) ([]domain.Entry, error)

	// CountByStatus tallies entries per status.
	CountByStatus(ctx context.Context) (map[string]int, error)
}
