package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ellarises/internal/adapters/storage"
	domain "ellarises/internal/domain/event"
)

// SQLStore implements Store over SQLite or Postgres.
type SQLStore struct {
	db storage.SQLDB
}

// NewSQLStore creates a new event store.
func NewSQLStore(db storage.SQLDB) *SQLStore {
	return &SQLStore{db: db}
}

// --- templates ---

const templateColumns = "event_template_id, name, event_type, description, recurrence, default_capacity"

// GetTemplate retrieves a template by id.
// POST: Returns the template or an error wrapping storage.ErrNotFound
func (s *SQLStore) GetTemplate(ctx context.Context, id int64) (domain.Template, error) {
	var t domain.Template
	err := s.db.QueryRowContext(ctx, "SELECT "+templateColumns+" FROM event_templates WHERE event_template_id = ?", id).
		Scan(&t.ID, &t.Name, &t.Type, &t.Description, &t.Recurrence, &t.DefaultCapacity)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Template{}, fmt.Errorf("event template %d: %w", id, storage.ErrNotFound)
	}
	return t, err
}

// CreateTemplate inserts a template and returns its id.
// PRE: t has been validated
func (s *SQLStore) CreateTemplate(ctx context.Context, t domain.Template) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO event_templates (name, event_type, description, recurrence, default_capacity)
		VALUES (?, ?, ?, ?, ?) RETURNING event_template_id`,
		t.Name, t.Type, t.Description, t.Recurrence, t.DefaultCapacity).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert event template: %w", err)
	}
	return id, nil
}

// UpdateTemplate writes every column of a template.
// POST: Row updated, or an error wrapping storage.ErrNotFound
func (s *SQLStore) UpdateTemplate(ctx context.Context, t domain.Template) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE event_templates SET name = ?, event_type = ?, description = ?, recurrence = ?, default_capacity = ?
		WHERE event_template_id = ?`,
		t.Name, t.Type, t.Description, t.Recurrence, t.DefaultCapacity, t.ID)
	if err != nil {
		return fmt.Errorf("update event template %d: %w", t.ID, err)
	}
	return requireRow(res, "event template", t.ID)
}

// DeleteTemplate removes a template. Occurrences referencing it block the delete.
func (s *SQLStore) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM event_templates WHERE event_template_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event template %d: %w", id, err)
	}
	return requireRow(res, "event template", id)
}

// ListTemplates returns every template by name.
func (s *SQLStore) ListTemplates(ctx context.Context) ([]domain.Template, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+templateColumns+" FROM event_templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list event templates: %w", err)
	}
	defer rows.Close()

	var results []domain.Template
	for rows.Next() {
		var t domain.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Type, &t.Description, &t.Recurrence, &t.DefaultCapacity); err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}

// CountOccurrencesOfTemplate counts occurrences scheduled from a template.
func (s *SQLStore) CountOccurrencesOfTemplate(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event_occurrences WHERE event_template_id = ?", id).Scan(&n)
	return n, err
}

// --- locations ---

// GetLocation retrieves a location by id.
// POST: Returns the location or an error wrapping storage.ErrNotFound
func (s *SQLStore) GetLocation(ctx context.Context, id int64) (domain.Location, error) {
	var l domain.Location
	err := s.db.QueryRowContext(ctx, "SELECT location_id, name, capacity FROM location_capacities WHERE location_id = ?", id).
		Scan(&l.ID, &l.Name, &l.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, fmt.Errorf("location %d: %w", id, storage.ErrNotFound)
	}
	return l, err
}

// CreateLocation inserts a location. Names are unique.
func (s *SQLStore) CreateLocation(ctx context.Context, l domain.Location) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO location_capacities (name, capacity) VALUES (?, ?) RETURNING location_id",
		strings.TrimSpace(l.Name), l.Capacity).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert location: %w", err)
	}
	return id, nil
}

// UpdateLocation writes name and capacity.
// POST: Row updated, or an error wrapping storage.ErrNotFound
func (s *SQLStore) UpdateLocation(ctx context.Context, l domain.Location) error {
	res, err := s.db.ExecContext(ctx, "UPDATE location_capacities SET name = ?, capacity = ? WHERE location_id = ?",
		strings.TrimSpace(l.Name), l.Capacity, l.ID)
	if err != nil {
		return fmt.Errorf("update location %d: %w", l.ID, err)
	}
	return requireRow(res, "location", l.ID)
}

// DeleteLocation removes a location. Occurrences referencing it block the delete.
func (s *SQLStore) DeleteLocation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM location_capacities WHERE location_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete location %d: %w", id, err)
	}
	return requireRow(res, "location", id)
}

// ListLocations returns every location by name.
func (s *SQLStore) ListLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT location_id, name, capacity FROM location_capacities ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var results []domain.Location
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Capacity); err != nil {
			return nil, err
		}
		results = append(results, l)
	}
	return results, rows.Err()
}

// CountOccurrencesAtLocation counts occurrences held at a location.
func (s *SQLStore) CountOccurrencesAtLocation(ctx context.Context, id int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM event_occurrences WHERE location_id = ?", id).Scan(&n)
	return n, err
}

// --- occurrences ---

const occurrenceViewSelect = `SELECT o.event_occurrence_id, o.event_template_id, o.location_id, o.starts_at, o.ends_at, o.registration_deadline,
	t.name, t.event_type, t.description, t.recurrence, t.default_capacity,
	l.name, l.capacity,
	(SELECT COUNT(*) FROM registrations r WHERE r.event_occurrence_id = o.event_occurrence_id AND r.status <> 'cancelled')
FROM event_occurrences o
JOIN event_templates t ON t.event_template_id = o.event_template_id
JOIN location_capacities l ON l.location_id = o.location_id`

// GetOccurrence retrieves an occurrence by id.
// POST: Returns the occurrence or an error wrapping storage.ErrNotFound
func (s *SQLStore) GetOccurrence(ctx context.Context, id int64) (domain.Occurrence, error) {
	v, err := s.GetOccurrenceView(ctx, id)
	return v.Occurrence, err
}

// GetOccurrenceView retrieves an occurrence with its template, location and seat count.
func (s *SQLStore) GetOccurrenceView(ctx context.Context, id int64) (OccurrenceView, error) {
	row := s.db.QueryRowContext(ctx, occurrenceViewSelect+" WHERE o.event_occurrence_id = ?", id)
	v, err := scanOccurrenceView(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return OccurrenceView{}, fmt.Errorf("event occurrence %d: %w", id, storage.ErrNotFound)
	}
	return v, err
}

// CreateOccurrence inserts an occurrence.
// PRE: o has been validated
// POST: Row inserted; unknown template or location yields storage.ErrNotFound
func (s *SQLStore) CreateOccurrence(ctx context.Context, o domain.Occurrence) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO event_occurrences (event_template_id, location_id, starts_at, ends_at, registration_deadline)
		VALUES (?, ?, ?, ?, ?) RETURNING event_occurrence_id`,
		o.TemplateID, o.LocationID,
		storage.FormatTime(o.StartsAt), storage.FormatTime(o.EndsAt), storage.FormatTime(o.RegistrationDeadline),
	).Scan(&id)
	if storage.IsForeignKeyViolation(err) {
		return 0, fmt.Errorf("template %d or location %d: %w", o.TemplateID, o.LocationID, storage.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("insert event occurrence: %w", err)
	}
	return id, nil
}

// UpdateOccurrence writes every column of an occurrence.
// POST: Row updated, or an error wrapping storage.ErrNotFound
func (s *SQLStore) UpdateOccurrence(ctx context.Context, o domain.Occurrence) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE event_occurrences SET event_template_id = ?, location_id = ?, starts_at = ?, ends_at = ?,
			registration_deadline = ? WHERE event_occurrence_id = ?`,
		o.TemplateID, o.LocationID,
		storage.FormatTime(o.StartsAt), storage.FormatTime(o.EndsAt), storage.FormatTime(o.RegistrationDeadline),
		o.ID)
	if storage.IsForeignKeyViolation(err) {
		return fmt.Errorf("template %d or location %d: %w", o.TemplateID, o.LocationID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update event occurrence %d: %w", o.ID, err)
	}
	return requireRow(res, "event occurrence", o.ID)
}

// DeleteOccurrence removes an occurrence. Registrations referencing it block the delete.
func (s *SQLStore) DeleteOccurrence(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM event_occurrences WHERE event_occurrence_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event occurrence %d: %w", id, err)
	}
	return requireRow(res, "event occurrence", id)
}

// ListOccurrences returns occurrences in start order.
// PRE: filter.Limit > 0
func (s *SQLStore) ListOccurrences(ctx context.Context, filter ListFilter) ([]OccurrenceView, error) {
	where, args := occurrenceWhere(filter)
	args = append(args, filter.Limit, filter.Offset)
	rows, err := s.db.QueryContext(ctx, occurrenceViewSelect+where+" ORDER BY o.starts_at, o.event_occurrence_id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("list event occurrences: %w", err)
	}
	defer rows.Close()

	var results []OccurrenceView
	for rows.Next() {
		v, err := scanOccurrenceView(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

// CountOccurrences returns the number of occurrences matching filter.
func (s *SQLStore) CountOccurrences(ctx context.Context, filter ListFilter) (int, error) {
	where, args := occurrenceWhere(filter)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_occurrences o
		JOIN event_templates t ON t.event_template_id = o.event_template_id
		JOIN location_capacities l ON l.location_id = o.location_id`+where,
		args...).Scan(&n)
	return n, err
}

func occurrenceWhere(filter ListFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Search != "" {
		pattern := storage.Pattern(filter.Search)
		clauses = append(clauses, "(LOWER(t.name) LIKE ? ESCAPE '\\' OR LOWER(t.event_type) LIKE ? ESCAPE '\\' OR LOWER(l.name) LIKE ? ESCAPE '\\')")
		args = append(args, pattern, pattern, pattern)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "o.starts_at >= ?")
		args = append(args, storage.FormatTime(filter.From))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanOccurrenceView(scan func(dest ...any) error) (OccurrenceView, error) {
	var v OccurrenceView
	var startsAt, endsAt, deadline sql.NullString
	err := scan(&v.ID, &v.TemplateID, &v.LocationID, &startsAt, &endsAt, &deadline,
		&v.Template.Name, &v.Template.Type, &v.Template.Description, &v.Template.Recurrence, &v.Template.DefaultCapacity,
		&v.Location.Name, &v.Location.Capacity,
		&v.Seats)
	if err != nil {
		return OccurrenceView{}, err
	}
	v.StartsAt = storage.ParseTime(startsAt)
	v.EndsAt = storage.ParseTime(endsAt)
	v.RegistrationDeadline = storage.ParseTime(deadline)
	v.Template.ID = v.TemplateID
	v.Location.ID = v.LocationID
	return v, nil
}

func requireRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, storage.ErrNotFound)
	}
	return nil
}
