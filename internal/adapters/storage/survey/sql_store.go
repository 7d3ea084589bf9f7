package survey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ellarises/internal/adapters/storage"
	domain "ellarises/internal/domain/survey"
)

const viewSelect = `SELECT s.survey_id, s.registration_id, s.satisfaction, s.usefulness, s.instructor, s.recommendation,
	s.overall_score, s.nps_bucket, s.comments, s.submitted_at,
	r.participant_id, p.first_name, p.last_name, t.name, o.starts_at
FROM surveys s
JOIN registrations r ON r.registration_id = s.registration_id
JOIN participant_info p ON p.participant_id = r.participant_id
JOIN event_occurrences o ON o.event_occurrence_id = r.event_occurrence_id
JOIN event_templates t ON t.event_template_id = o.event_template_id`

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new survey store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// Create inserts the survey row and its responses together.
// PRE: s has been validated and scored
// POST: Survey and responses committed atomically
func (s *SQLStore) Create(ctx context.Context, sv domain.Survey, responses []domain.Response) (int64, error) {
	submittedAt := sv.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}
	var id int64
	err := s.db.InTx(ctx, func(q storage.Querier) error {
		err := q.QueryRowContext(ctx,
			`INSERT INTO surveys (registration_id, satisfaction, usefulness, instructor, recommendation,
				overall_score, nps_bucket, comments, submitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING survey_id`,
			sv.RegistrationID, sv.Satisfaction, sv.Usefulness, sv.Instructor, sv.Recommendation,
			sv.OverallScore, sv.NPSBucket, sv.Comments, storage.FormatTime(submittedAt),
		).Scan(&id)
		if err != nil {
			return err
		}
		for _, r := range responses {
			if _, err := q.ExecContext(ctx,
				"INSERT INTO survey_question_responses (survey_id, question, answer) VALUES (?, ?, ?)",
				id, r.Question, r.Answer); err != nil {
				return fmt.Errorf("insert response: %w", err)
			}
		}
		return nil
	})
	if storage.IsForeignKeyViolation(err) {
		return 0, fmt.Errorf("registration %d: %w", sv.RegistrationID, storage.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("insert survey: %w", err)
	}
	return id, nil
}

// GetByID retrieves a survey with display names.
// POST: Returns the survey or an error wrapping storage.ErrNotFound
func (s *SQLStore) GetByID(ctx context.Context, id int64) (View, error) {
	row := s.db.QueryRowContext(ctx, viewSelect+" WHERE s.survey_id = ?", id)
	v, err := scanView(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return View{}, fmt.Errorf("survey %d: %w", id, storage.ErrNotFound)
	}
	return v, err
}

// ExistsForRegistration reports whether a survey was already submitted.
func (s *SQLStore) ExistsForRegistration(ctx context.Context, registrationID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM surveys WHERE registration_id = ?", registrationID).Scan(&n)
	return n > 0, err
}

// Responses returns a survey's question/answer pairs in entry order.
func (s *SQLStore) Responses(ctx context.Context, surveyID int64) ([]domain.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT response_id, survey_id, question, answer FROM survey_question_responses WHERE survey_id = ? ORDER BY response_id",
		surveyID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var results []domain.Response
	for rows.Next() {
		var r domain.Response
		if err := rows.Scan(&r.ID, &r.SurveyID, &r.Question, &r.Answer); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Delete removes a survey and its responses.
// POST: Rows removed together, or an error wrapping storage.ErrNotFound
func (s *SQLStore) Delete(ctx context.Context, id int64) error {
	return s.db.InTx(ctx, func(q storage.Querier) error {
		if _, err := q.ExecContext(ctx, "DELETE FROM survey_question_responses WHERE survey_id = ?", id); err != nil {
			return fmt.Errorf("delete responses: %w", err)
		}
		res, err := q.ExecContext(ctx, "DELETE FROM surveys WHERE survey_id = ?", id)
		if err != nil {
			return fmt.Errorf("delete survey %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("survey %d: %w", id, storage.ErrNotFound)
		}
		return nil
	})
}

// List returns surveys, most recent submission first.
// PRE: filter.Limit > 0
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]View, error) {
	where, args := listWhere(filter)
	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, viewSelect+where+" ORDER BY s.submitted_at DESC, s.survey_id DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
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

// Count returns the number of surveys matching filter.
func (s *SQLStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM surveys s
		JOIN registrations r ON r.registration_id = s.registration_id
		JOIN participant_info p ON p.participant_id = r.participant_id
		JOIN event_occurrences o ON o.event_occurrence_id = r.event_occurrence_id
		JOIN event_templates t ON t.event_template_id = o.event_template_id`+where,
		args...).Scan(&n)
	return n, err
}

// BucketCounts tallies every survey by NPS bucket.
func (s *SQLStore) BucketCounts(ctx context.Context) (BucketCounts, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT nps_bucket, COUNT(*) FROM surveys GROUP BY nps_bucket")
	if err != nil {
		return BucketCounts{}, fmt.Errorf("count buckets: %w", err)
	}
	defer rows.Close()

	var b BucketCounts
	for rows.Next() {
		var bucket string
		var n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return BucketCounts{}, err
		}
		switch bucket {
		case domain.BucketPromoter:
			b.Promoters = n
		case domain.BucketPassive:
			b.Passives = n
		case domain.BucketDetractor:
			b.Detractors = n
		}
	}
	return b, rows.Err()
}

func listWhere(filter ListFilter) (string, []any) {
	if filter.Search == "" {
		return "", nil
	}
	pattern := storage.Pattern(filter.Search)
	return " WHERE (LOWER(p.first_name || ' ' || p.last_name) LIKE ? ESCAPE '\\' OR LOWER(t.name) LIKE ? ESCAPE '\\' OR s.nps_bucket LIKE ? ESCAPE '\\')",
		[]any{pattern, pattern, pattern}
}

func scanView(scan func(dest ...any) error) (View, error) {
	var v View
	var submittedAt, startsAt sql.NullString
	err := scan(&v.ID, &v.RegistrationID, &v.Satisfaction, &v.Usefulness, &v.Instructor, &v.Recommendation,
		&v.OverallScore, &v.NPSBucket, &v.Comments, &submittedAt,
		&v.ParticipantID, &v.FirstName, &v.LastName, &v.EventName, &startsAt)
	if err != nil {
		return View{}, err
	}
	v.SubmittedAt = storage.ParseTime(submittedAt)
	v.StartsAt = storage.ParseTime(startsAt)
	return v, nil
}
