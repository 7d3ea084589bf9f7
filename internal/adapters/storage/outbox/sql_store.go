package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ellarises/internal/adapters/storage"
	domain "ellarises/internal/domain/outbox"
)

const entryColumns = `id, action_type, payload, status, attempts, max_attempts, last_attempted_at, created_at, external_id, error_message`

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new outbox store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves an outbox entry by its ID.
func (s *SQLStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM outbox WHERE id = ?", id)
	e, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, fmt.Errorf("outbox %s: %w", id, storage.ErrNotFound)
	}
	return e, err
}

// Save upserts an entry. ON CONFLICT ... DO UPDATE is accepted by both dialects.
// PRE: entry has been validated
// POST: Entry is persisted
func (s *SQLStore) Save(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outbox (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status, attempts = excluded.attempts, max_attempts = excluded.max_attempts,
			last_attempted_at = excluded.last_attempted_at, external_id = excluded.external_id,
			error_message = excluded.error_message`,
		e.ID, e.ActionType, e.Payload, e.Status, e.Attempts, e.MaxAttempts,
		storage.FormatTime(e.LastAttemptedAt), storage.FormatTime(e.CreatedAt), e.ExternalID, e.ErrorMessage)
	if err != nil {
		return fmt.Errorf("save outbox %s: %w", e.ID, err)
	}
	return nil
}

// ListPending returns pending and retrying entries, oldest first.
func (s *SQLStore) ListPending(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx,
		"WHERE status IN (?, ?) ORDER BY created_at ASC, id ASC LIMIT ?",
		domain.StatusPending, domain.StatusRetrying, limit)
}

// ListFailed returns entries that exhausted their attempts.
func (s *SQLStore) ListFailed(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx,
		"WHERE status = ? ORDER BY last_attempted_at DESC, id ASC LIMIT ?",
		domain.StatusFailed, limit)
}

// ListRecent returns the newest entries in any state.
func (s *SQLStore) ListRecent(ctx context.Context, limit int) ([]domain.Entry, error) {
	return s.list(ctx, "ORDER BY created_at DESC, id ASC LIMIT ?", limit)
}

// CountByStatus tallies entries per status.
func (s *SQLStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM outbox GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count outbox: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *SQLStore) list(ctx context.Context, tail string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+entryColumns+" FROM outbox "+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("list outbox: %w", err)
	}
	defer rows.Close()

	var results []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (domain.Entry, error) {
	var e domain.Entry
	var lastAttemptedAt, createdAt sql.NullString
	err := scan(&e.ID, &e.ActionType, &e.Payload, &e.Status, &e.Attempts, &e.MaxAttempts,
		&lastAttemptedAt, &createdAt, &e.ExternalID, &e.ErrorMessage)
	if err != nil {
		return domain.Entry{}, err
	}
	e.LastAttemptedAt = storage.ParseTime(lastAttemptedAt)
	e.CreatedAt = storage.ParseTime(createdAt)
	return e, nil
}
