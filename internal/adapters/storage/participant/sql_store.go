package participant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ellarises/internal/adapters/storage"
	domain "ellarises/internal/domain/participant"
	"ellarises/internal/domain/user"
)

const participantColumns = `participant_id, first_name, last_name, email, phone, date_of_birth, role,
	city, state, zip, school_or_employer, field_of_interest, total_donations_cents, created_at`

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new participant store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a Participant by id.
// PRE: id > 0
// POST: Returns the participant or an error wrapping storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id int64) (domain.Participant, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+participantColumns+" FROM participant_info WHERE participant_id = ?", id)
	p, err := scanParticipant(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, fmt.Errorf("participant %d: %w", id, storage.ErrNotFound)
	}
	return p, err
}

// GetByEmail retrieves a Participant by email, ignoring case.
// POST: Returns the participant or an error wrapping storage.ErrNotFound
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (domain.Participant, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+participantColumns+" FROM participant_info WHERE email = ?", user.NormalizeEmail(email))
	p, err := scanParticipant(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, fmt.Errorf("participant %s: %w", email, storage.ErrNotFound)
	}
	return p, err
}

// Create inserts a participant and returns its id. TotalDonationsCents is ignored;
// totals only change through donation writes.
// PRE: p has been validated
// POST: Row inserted; a duplicate email surfaces as a unique violation
func (s *SQLStore) Create(ctx context.Context, p domain.Participant) (int64, error) {
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO participant_info (first_name, last_name, email, phone, date_of_birth, role,
			city, state, zip, school_or_employer, field_of_interest, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING participant_id`,
		strings.TrimSpace(p.FirstName), strings.TrimSpace(p.LastName), user.NormalizeEmail(p.Email),
		p.Phone, storage.FormatDate(p.DateOfBirth), p.Role,
		p.City, p.State, p.Zip, p.SchoolOrEmployer, p.FieldOfInterest,
		storage.FormatTime(createdAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert participant: %w", err)
	}
	return id, nil
}

// Update writes the editable columns of a participant.
// PRE: p.ID > 0 and p has been validated
// POST: Row updated, or an error wrapping storage.ErrNotFound
func (s *SQLStore) Update(ctx context.Context, p domain.Participant) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE participant_info SET first_name = ?, last_name = ?, email = ?, phone = ?, date_of_birth = ?,
			role = ?, city = ?, state = ?, zip = ?, school_or_employer = ?, field_of_interest = ?
		WHERE participant_id = ?`,
		strings.TrimSpace(p.FirstName), strings.TrimSpace(p.LastName), user.NormalizeEmail(p.Email),
		p.Phone, storage.FormatDate(p.DateOfBirth), p.Role,
		p.City, p.State, p.Zip, p.SchoolOrEmployer, p.FieldOfInterest,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update participant %d: %w", p.ID, err)
	}
	return requireRow(res, p.ID)
}

// Delete removes a participant and unlinks any user pointing at it.
// Rows that reference the participant make the delete fail with a foreign key
// violation; callers check Dependents first.
// POST: Row removed, or an error wrapping storage.ErrNotFound
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	return s.db.InTx(ctx, func(q storage.Querier) error {
		if _, err := q.ExecContext(ctx, "UPDATE users SET participant_id = NULL WHERE participant_id = ?", id); err != nil {
			return fmt.Errorf("unlink users: %w", err)
		}
		res, err := q.ExecContext(ctx, "DELETE FROM participant_info WHERE participant_id = ?", id)
		if err != nil {
			return fmt.Errorf("delete participant %d: %w", id, err)
		}
		return requireRow(res, id)
	})
}

// Dependents counts milestones, donations and registrations owned by id.
func (s *SQLStore) Dependents(ctx context.Context, id int64) (Dependents, error) {
	var d Dependents
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM participant_milestones WHERE participant_id = ?),
			(SELECT COUNT(*) FROM participant_donations WHERE participant_id = ?),
			(SELECT COUNT(*) FROM registrations WHERE participant_id = ?)`,
		id, id, id,
	).Scan(&d.Milestones, &d.Donations, &d.Registrations)
	if err != nil {
		return Dependents{}, fmt.Errorf("count dependents of %d: %w", id, err)
	}
	return d, nil
}

// List retrieves participants matching filter.
// PRE: filter.Limit > 0
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]domain.Participant, error) {
	where, args := listWhere(filter)

	var qb strings.Builder
	qb.WriteString("SELECT " + participantColumns + " FROM participant_info" + where)
	order, ok := SortColumns[filter.Sort]
	if !ok {
		order = SortColumns["name"]
	}
	qb.WriteString(" ORDER BY " + order)
	if filter.Desc {
		qb.WriteString(" DESC")
	}
	qb.WriteString(", participant_id LIMIT ? OFFSET ?")
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var results []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// Count returns the number of participants matching filter.
func (s *SQLStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM participant_info"+where, args...).Scan(&n)
	return n, err
}

func listWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Search != "" {
		pattern := storage.Pattern(filter.Search)
		clauses = append(clauses, "(LOWER(first_name || ' ' || last_name) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')")
		args = append(args, pattern, pattern)
	}
	if filter.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, filter.Role)
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
		return fmt.Errorf("participant %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// scanParticipant extracts a Participant from a row scanner function.
func scanParticipant(scan func(dest ...any) error) (domain.Participant, error) {
	var p domain.Participant
	var dob, createdAt sql.NullString
	err := scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &dob, &p.Role,
		&p.City, &p.State, &p.Zip, &p.SchoolOrEmployer, &p.FieldOfInterest, &p.TotalDonationsCents, &createdAt)
	if err != nil {
		return domain.Participant{}, err
	}
	p.DateOfBirth = storage.ParseDate(dob)
	p.CreatedAt = storage.ParseTime(createdAt)
	return p, nil
}
