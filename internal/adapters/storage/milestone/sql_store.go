package milestone

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ellarises/internal/adapters/storage"
	domain "ellarises/internal/domain/milestone"
)

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new milestone store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// Add claims the owner's next milestone number and inserts the row in one
// transaction.
// PRE: m has been validated
// POST: Returns m with Number set; an unknown owner yields storage.ErrNotFound
func (s *SQLStore) Add(ctx context.Context, m domain.Milestone) (domain.Milestone, error) {
	err := s.db.InTx(ctx, func(q storage.Querier) error {
		n, err := storage.ClaimNumber(ctx, q, storage.MilestoneCounter, m.ParticipantID)
		if err != nil {
			return err
		}
		m.Number = n
		_, err = q.ExecContext(ctx,
			`INSERT INTO participant_milestones (participant_id, milestone_number, milestone_title, milestone_date)
			VALUES (?, ?, ?, ?)`,
			m.ParticipantID, m.Number, m.Title, storage.FormatDate(m.AchievedOn))
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Milestone{}, err
	}
	if err != nil {
		return domain.Milestone{}, fmt.Errorf("insert milestone: %w", err)
	}
	return m, nil
}

// Get retrieves one milestone.
// POST: Returns the milestone or an error wrapping storage.ErrNotFound
func (s *SQLStore) Get(ctx context.Context, participantID int64, number int) (domain.Milestone, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT participant_id, milestone_number, milestone_title, milestone_date
		FROM participant_milestones WHERE participant_id = ? AND milestone_number = ?`,
		participantID, number)
	m, err := scanMilestone(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Milestone{}, fmt.Errorf("milestone %d/%d: %w", participantID, number, storage.ErrNotFound)
	}
	return m, err
}

// Update changes title and date. The key is immutable.
// POST: Row updated, or an error wrapping storage.ErrNotFound
func (s *SQLStore) Update(ctx context.Context, m domain.Milestone) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE participant_milestones SET milestone_title = ?, milestone_date = ?
		WHERE participant_id = ? AND milestone_number = ?`,
		m.Title, storage.FormatDate(m.AchievedOn), m.ParticipantID, m.Number)
	if err != nil {
		return fmt.Errorf("update milestone: %w", err)
	}
	return requireRow(res, m.ParticipantID, m.Number)
}

// Delete removes one milestone. Remaining numbers are left as they are.
// POST: Row removed, or an error wrapping storage.ErrNotFound
func (s *SQLStore) Delete(ctx context.Context, participantID int64, number int) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM participant_milestones WHERE participant_id = ? AND milestone_number = ?",
		participantID, number)
	if err != nil {
		return fmt.Errorf("delete milestone: %w", err)
	}
	return requireRow(res, participantID, number)
}

// ListByParticipant returns one participant's milestones in number order.
func (s *SQLStore) ListByParticipant(ctx context.Context, participantID int64) ([]domain.Milestone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, milestone_number, milestone_title, milestone_date
		FROM participant_milestones WHERE participant_id = ? ORDER BY milestone_number`,
		participantID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var results []domain.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, m)
	}
	return results, rows.Err()
}

// List returns milestones across participants, newest first.
// PRE: filter.Limit > 0
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]Owned, error) {
	where, args := listWhere(filter)
	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.participant_id, m.milestone_number, m.milestone_title, m.milestone_date, p.first_name, p.last_name
		FROM participant_milestones m JOIN participant_info p ON p.participant_id = m.participant_id`+where+`
		ORDER BY m.milestone_date DESC, p.last_name, m.milestone_number LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	defer rows.Close()

	var results []Owned
	for rows.Next() {
		var o Owned
		var date sql.NullString
		if err := rows.Scan(&o.ParticipantID, &o.Number, &o.Title, &date, &o.FirstName, &o.LastName); err != nil {
			return nil, err
		}
		o.AchievedOn = storage.ParseDate(date)
		results = append(results, o)
	}
	return results, rows.Err()
}

// Count returns the number of milestones matching filter.
func (s *SQLStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participant_milestones m
		JOIN participant_info p ON p.participant_id = m.participant_id`+where,
		args...).Scan(&n)
	return n, err
}

func listWhere(filter ListFilter) (string, []any) {
	if filter.Search == "" {
		return "", nil
	}
	pattern := storage.Pattern(filter.Search)
	return " WHERE (LOWER(m.milestone_title) LIKE ? ESCAPE '\\' OR LOWER(p.first_name || ' ' || p.last_name) LIKE ? ESCAPE '\\')",
		[]any{pattern, pattern}
}

func requireRow(res sql.Result, participantID int64, number int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("milestone %d/%d: %w", participantID, number, storage.ErrNotFound)
	}
	return nil
}

func scanMilestone(scan func(dest ...any) error) (domain.Milestone, error) {
	var m domain.Milestone
	var date sql.NullString
	if err := scan(&m.ParticipantID, &m.Number, &m.Title, &date); err != nil {
		return domain.Milestone{}, err
	}
	m.AchievedOn = storage.ParseDate(date)
	return m, nil
}
