package storage

import (
	"database/sql"
	"time"
)

// Timestamps are stored as fixed-width UTC text in both dialects so that
// scanning is identical and string comparison orders them; dates use DateLayout.
const (
	TimeLayout = "2006-01-02T15:04:05.000000Z07:00"
	DateLayout = "2006-01-02"
)

// FormatTime renders t for storage. The zero time is stored as NULL.
func FormatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(TimeLayout)
}

// FormatDate renders the calendar date of t. The zero time is stored as NULL.
func FormatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(DateLayout)
}

// ParseTime reads a stored timestamp; NULL or garbage yields the zero time.
func ParseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	if t, err := time.Parse(TimeLayout, s.String); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s.String); err == nil {
		return t
	}
	if t, err := time.Parse(DateLayout, s.String); err == nil {
		return t
	}
	return time.Time{}
}

// ParseDate reads a stored date.
func ParseDate(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(DateLayout, s.String)
	if err != nil {
		return ParseTime(s)
	}
	return t
}

// NullID maps a zero id to NULL for optional foreign keys.
func NullID(id int64) any {
	if id <= 0 {
		return nil
	}
	return id
}
