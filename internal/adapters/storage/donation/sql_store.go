package donation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ellarises/internal/adapters/storage"
	domain "ellarises/internal/domain/donation"
)

// refreshTotal recomputes the cached total from the donation rows.
const refreshTotal = `UPDATE participant_info SET total_donations_cents =
	(SELECT COALESCE(SUM(donation_amount_cents), 0) FROM participant_donations WHERE participant_id = ?)
	WHERE participant_id = ?`

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new donation store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// Add claims the owner's next donation number, inserts the row and refreshes
// the owner's total, all in one transaction.
// PRE: d has been validated
// POST: Returns d with Number set; an unknown owner yields storage.ErrNotFound
func (s *SQLStore) Add(ctx context.Context, d domain.Donation) (domain.Donation, error) {
	err := s.db.InTx(ctx, func(q storage.Querier) error {
		n, err := storage.ClaimNumber(ctx, q, storage.DonationCounter, d.ParticipantID)
		if err != nil {
			return err
		}
		d.Number = n
		if _, err := q.ExecContext(ctx,
			`INSERT INTO participant_donations (participant_id, donation_number, donation_amount_cents, donation_date)
			VALUES (?, ?, ?, ?)`,
			d.ParticipantID, d.Number, d.AmountCents, storage.FormatDate(d.DonatedOn)); err != nil {
			return err
		}
		_, err = q.ExecContext(ctx, refreshTotal, d.ParticipantID, d.ParticipantID)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Donation{}, err
	}
	if err != nil {
		return domain.Donation{}, fmt.Errorf("insert donation: %w", err)
	}
	return d, nil
}

// Get retrieves one donation.
// POST: Returns the donation or an error wrapping storage.ErrNotFound
func (s *SQLStore) Get(ctx context.Context, participantID int64, number int) (domain.Donation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT participant_id, donation_number, donation_amount_cents, donation_date
		FROM participant_donations WHERE participant_id = ? AND donation_number = ?`,
		participantID, number)
	d, err := scanDonation(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Donation{}, fmt.Errorf("donation %d/%d: %w", participantID, number, storage.ErrNotFound)
	}
	return d, err
}

// Update changes amount and date, then refreshes the owner's total.
// POST: Row and total updated together, or an error wrapping storage.ErrNotFound
func (s *SQLStore) Update(ctx context.Context, d domain.Donation) error {
	return s.db.InTx(ctx, func(q storage.Querier) error {
		res, err := q.ExecContext(ctx,
			`UPDATE participant_donations SET donation_amount_cents = ?, donation_date = ?
			WHERE participant_id = ? AND donation_number = ?`,
			d.AmountCents, storage.FormatDate(d.DonatedOn), d.ParticipantID, d.Number)
		if err != nil {
			return fmt.Errorf("update donation: %w", err)
		}
		if err := requireRow(res, d.ParticipantID, d.Number); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, refreshTotal, d.ParticipantID, d.ParticipantID); err != nil {
			return fmt.Errorf("refresh total: %w", err)
		}
		return nil
	})
}

// Delete removes one donation and refreshes the owner's total. Remaining
// numbers are left as they are.
// POST: Row removed and total updated together, or an error wrapping storage.ErrNotFound
func (s *SQLStore) Delete(ctx context.Context, participantID int64, number int) error {
	return s.db.InTx(ctx, func(q storage.Querier) error {
		res, err := q.ExecContext(ctx,
			"DELETE FROM participant_donations WHERE participant_id = ? AND donation_number = ?",
			participantID, number)
		if err != nil {
			return fmt.Errorf("delete donation: %w", err)
		}
		if err := requireRow(res, participantID, number); err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, refreshTotal, participantID, participantID); err != nil {
			return fmt.Errorf("refresh total: %w", err)
		}
		return nil
	})
}

// ListByParticipant returns one participant's donations in number order.
func (s *SQLStore) ListByParticipant(ctx context.Context, participantID int64) ([]domain.Donation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, donation_number, donation_amount_cents, donation_date
		FROM participant_donations WHERE participant_id = ? ORDER BY donation_number`,
		participantID)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var results []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// List returns donations across participants, newest first.
// PRE: filter.Limit > 0
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]Owned, error) {
	where, args := listWhere(filter)
	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.participant_id, d.donation_number, d.donation_amount_cents, d.donation_date,
			p.first_name, p.last_name, p.email
		FROM participant_donations d JOIN participant_info p ON p.participant_id = d.participant_id`+where+`
		ORDER BY d.donation_date DESC, p.last_name, d.donation_number LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	var results []Owned
	for rows.Next() {
		var o Owned
		var date sql.NullString
		if err := rows.Scan(&o.ParticipantID, &o.Number, &o.AmountCents, &date, &o.FirstName, &o.LastName, &o.Email); err != nil {
			return nil, err
		}
		o.DonatedOn = storage.ParseDate(date)
		results = append(results, o)
	}
	return results, rows.Err()
}

// Count returns the number of donations matching filter.
func (s *SQLStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participant_donations d
		JOIN participant_info p ON p.participant_id = d.participant_id`+where,
		args...).Scan(&n)
	return n, err
}

// Sum returns the total amount in cents of donations matching filter.
func (s *SQLStore) Sum(ctx context.Context, filter ListFilter) (int64, error) {
	where, args := listWhere(filter)
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(d.donation_amount_cents), 0) FROM participant_donations d
		JOIN participant_info p ON p.participant_id = d.participant_id`+where,
		args...).Scan(&total)
	return total, err
}

func listWhere(filter ListFilter) (string, []any) {
	if filter.Search == "" {
		return "", nil
	}
	pattern := storage.Pattern(filter.Search)
	return " WHERE (LOWER(p.first_name || ' ' || p.last_name) LIKE ? ESCAPE '\\' OR LOWER(p.email) LIKE ? ESCAPE '\\')",
		[]any{pattern, pattern}
}

func requireRow(res sql.Result, participantID int64, number int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("donation %d/%d: %w", participantID, number, storage.ErrNotFound)
	}
	return nil
}

func scanDonation(scan func(dest ...any) error) (domain.Donation, error) {
	var d domain.Donation
	var date sql.NullString
	if err := scan(&d.ParticipantID, &d.Number, &d.AmountCents, &date); err != nil {
		return domain.Donation{}, err
	}
	d.DonatedOn = storage.ParseDate(date)
	return d, nil
}
