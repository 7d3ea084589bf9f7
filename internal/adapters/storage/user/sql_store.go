package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ellarises/internal/adapters/storage"
	domain "ellarises/internal/domain/user"
)

const userColumns = "user_id, email, password_hash, level, participant_id, failed_logins, locked_until, created_at"

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new user store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// GetByID retrieves a User by id.
// PRE: id > 0
// POST: Returns the user or an error wrapping storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE user_id = ?", id)
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	return u, err
}

// GetByEmail retrieves a User by email, ignoring case.
// PRE: email is non-empty
// POST: Returns the user or an error wrapping storage.ErrNotFound
func (s *SQLStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", domain.NormalizeEmail(email))
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, fmt.Errorf("user %s: %w", email, storage.ErrNotFound)
	}
	return u, err
}

// Create inserts a new user and returns its id. A duplicate email surfaces as
// a unique violation (see storage.IsUniqueViolation).
// PRE: u has been validated and has a password hash
// POST: Row inserted with a normalized email
func (s *SQLStore) Create(ctx context.Context, u domain.User) (int64, error) {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, level, participant_id, failed_logins, locked_until, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING user_id`,
		domain.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.Level,
		storage.NullID(u.ParticipantID),
		u.FailedLogins,
		storage.FormatTime(u.LockedUntil),
		storage.FormatTime(createdAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

// Update writes every mutable column of an existing user.
// PRE: u.ID > 0
// POST: Row updated, or an error wrapping storage.ErrNotFound
func (s *SQLStore) Update(ctx context.Context, u domain.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET email = ?, password_hash = ?, level = ?, participant_id = ?,
		failed_logins = ?, locked_until = ? WHERE user_id = ?`,
		domain.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.Level,
		storage.NullID(u.ParticipantID),
		u.FailedLogins,
		storage.FormatTime(u.LockedUntil),
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return requireRow(res, u.ID)
}

// LinkParticipant points a user at a participant row.
// POST: users.participant_id = participantID
func (s *SQLStore) LinkParticipant(ctx context.Context, userID, participantID int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET participant_id = ? WHERE user_id = ?", storage.NullID(participantID), userID)
	if err != nil {
		return fmt.Errorf("link user %d: %w", userID, err)
	}
	return requireRow(res, userID)
}

// Delete removes a user.
// POST: Row removed, or an error wrapping storage.ErrNotFound
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE user_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	return requireRow(res, id)
}

// List retrieves users ordered by email.
// PRE: filter.Limit > 0
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]domain.User, error) {
	where, args := listWhere(filter)
	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users"+where+" ORDER BY email LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var results []domain.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Count returns the number of users matching filter.
func (s *SQLStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&n)
	return n, err
}

func listWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Search != "" {
		clauses = append(clauses, "LOWER(email) LIKE ? ESCAPE '\\'")
		args = append(args, storage.Pattern(filter.Search))
	}
	if filter.Level != "" {
		clauses = append(clauses, "level = ?")
		args = append(args, filter.Level)
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
		return fmt.Errorf("user %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

// scanUser extracts a User from a row scanner function.
func scanUser(scan func(dest ...any) error) (domain.User, error) {
	var u domain.User
	var participantID sql.NullInt64
	var lockedUntil, createdAt sql.NullString
	if err := scan(&u.ID, &u.Email, &u.PasswordHash, &u.Level, &participantID, &u.FailedLogins, &lockedUntil, &createdAt); err != nil {
		return domain.User{}, err
	}
	u.ParticipantID = participantID.Int64
	u.LockedUntil = storage.ParseTime(lockedUntil)
	u.CreatedAt = storage.ParseTime(createdAt)
	return u, nil
}
