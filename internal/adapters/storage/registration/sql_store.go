package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ellarises/internal/adapters/storage"
	domain "ellarises/internal/domain/registration"
)

const viewSelect = `SELECT r.registration_id, r.participant_id, r.event_occurrence_id, r.status, r.created_at,
	p.first_name, p.last_name, p.email, t.name, o.starts_at,
	(SELECT COUNT(*) FROM surveys s WHERE s.registration_id = r.registration_id)
FROM registrations r
JOIN participant_info p ON p.participant_id = r.participant_id
JOIN event_occurrences o ON o.event_occurrence_id = r.event_occurrence_id
JOIN event_templates t ON t.event_template_id = o.event_template_id`

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new registration store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a registration.
// POST: Returns the registration or an error wrapping storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id int64) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT registration_id, participant_id, event_occurrence_id, status, created_at FROM registrations WHERE registration_id = ?", id)
	r, err := scanRegistration(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, fmt.Errorf("registration %d: %w", id, storage.ErrNotFound)
	}
	return r, err
}

// GetView retrieves a registration with display names.
func (s *SQLStore) GetView(ctx context.Context, id int64) (View, error) {
	row := s.db.QueryRowContext(ctx, viewSelect+" WHERE r.registration_id = ?", id)
	v, err := scanView(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return View{}, fmt.Errorf("registration %d: %w", id, storage.ErrNotFound)
	}
	return v, err
}

// Find returns the registration of a participant for an occurrence.
// POST: Returns the registration or an error wrapping storage.ErrNotFound
func (s *SQLStore) Find(ctx context.Context, participantID, occurrenceID int64) (domain.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT registration_id, participant_id, event_occurrence_id, status, created_at
		FROM registrations WHERE participant_id = ? AND event_occurrence_id = ?`,
		participantID, occurrenceID)
	r, err := scanRegistration(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Registration{}, fmt.Errorf("registration %d/%d: %w", participantID, occurrenceID, storage.ErrNotFound)
	}
	return r, err
}

// CreateWithinCapacity inserts a registration when a seat is free. The
// occurrence row is written first so that concurrent sign-ups for the same
// occurrence run one at a time on both dialects: a row lock on Postgres, the
// database write lock on SQLite. A second registration for the same pair
// surfaces as a unique violation.
// PRE: r has been validated
// POST: Returns the new id, ErrFull, or an error wrapping storage.ErrNotFound for unknown references
// INVARIANT: non-cancelled registrations never exceed a non-zero capacity
func (s *SQLStore) CreateWithinCapacity(ctx context.Context, r domain.Registration, capacity int) (int64, error) {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var id int64
	err := s.db.InTx(ctx, func(q storage.Querier) error {
		res, err := q.ExecContext(ctx,
			"UPDATE event_occurrences SET event_template_id = event_template_id WHERE event_occurrence_id = ?",
			r.OccurrenceID)
		if err != nil {
			return fmt.Errorf("lock occurrence %d: %w", r.OccurrenceID, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return fmt.Errorf("occurrence %d: %w", r.OccurrenceID, storage.ErrNotFound)
		}
		return q.QueryRowContext(ctx,
			`INSERT INTO registrations (participant_id, event_occurrence_id, status, created_at)
			SELECT CAST(? AS BIGINT), CAST(? AS BIGINT), CAST(? AS TEXT), CAST(? AS TEXT)
			WHERE CAST(? AS INTEGER) = 0 OR (
				SELECT COUNT(*) FROM registrations
				WHERE event_occurrence_id = ? AND status <> 'cancelled'
			) < CAST(? AS INTEGER)
			RETURNING registration_id`,
			r.ParticipantID, r.OccurrenceID, r.Status, storage.FormatTime(createdAt),
			capacity, r.OccurrenceID, capacity,
		).Scan(&id)
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, ErrFull
	case errors.Is(err, storage.ErrNotFound):
		return 0, err
	case storage.IsForeignKeyViolation(err):
		return 0, fmt.Errorf("participant %d or occurrence %d: %w", r.ParticipantID, r.OccurrenceID, storage.ErrNotFound)
	case err != nil:
		return 0, fmt.Errorf("insert registration: %w", err)
	}
	return id, nil
}

// UpdateStatus changes a registration's status.
// POST: Row updated, or an error wrapping storage.ErrNotFound
func (s *SQLStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE registrations SET status = ? WHERE registration_id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update registration %d: %w", id, err)
	}
	return requireRow(res, id)
}

// Delete removes a registration. A survey referencing it blocks the delete.
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM registrations WHERE registration_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete registration %d: %w", id, err)
	}
	return requireRow(res, id)
}

// List returns registrations, soonest event first.
// PRE: filter.Limit > 0
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]View, error) {
	where, args := listWhere(filter)
	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, viewSelect+where+" ORDER BY o.starts_at DESC, p.last_name, r.registration_id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var results []View
	for rows.Next() {
		v, err := scanView(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

// Count returns the number of registrations matching filter.
func (s *SQLStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations r
		JOIN participant_info p ON p.participant_id = r.participant_id
		JOIN event_occurrences o ON o.event_occurrence_id = r.event_occurrence_id
		JOIN event_templates t ON t.event_template_id = o.event_template_id`+where,
		args...).Scan(&n)
	return n, err
}

func listWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Search != "" {
		pattern := storage.Pattern(filter.Search)
		clauses = append(clauses, "(LOWER(p.first_name || ' ' || p.last_name) LIKE ? ESCAPE '\\' OR LOWER(t.name) LIKE ? ESCAPE '\\')")
		args = append(args, pattern, pattern)
	}
	if filter.ParticipantID > 0 {
		clauses = append(clauses, "r.participant_id = ?")
		args = append(args, filter.ParticipantID)
	}
	if filter.OccurrenceID > 0 {
		clauses = append(clauses, "r.event_occurrence_id = ?")
		args = append(args, filter.OccurrenceID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("registration %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func scanRegistration(scan func(dest ...any) error) (domain.Registration, error) {
	var r domain.Registration
	var createdAt sql.NullString
	if err := scan(&r.ID, &r.ParticipantID, &r.OccurrenceID, &r.Status, &createdAt); err != nil {
		return domain.Registration{}, err
	}
	r.CreatedAt = storage.ParseTime(createdAt)
	return r, nil
}

func scanView(scan func(dest ...any) error) (View, error) {
	var v View
	var createdAt, startsAt sql.NullString
	var surveys int
	err := scan(&v.ID, &v.ParticipantID, &v.OccurrenceID, &v.Status, &createdAt,
		&v.FirstName, &v.LastName, &v.Email, &v.EventName, &startsAt, &surveys)
	if err != nil {
		return View{}, err
	}
	v.CreatedAt = storage.ParseTime(createdAt)
	v.StartsAt = storage.ParseTime(startsAt)
	v.HasSurvey = surveys > 0
	return v, nil
}
