package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ellarises/internal/adapters/http/perf"
)

// Querier runs statements. It is satisfied by the pool and by an open transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLDB is the database handle every store is built on.
type SQLDB interface {
	Querier
	// InTx runs fn inside a transaction, committing when fn returns nil.
	InTx(ctx context.Context, fn func(q Querier) error) error
	Dialect() Dialect
}

// DefaultSlowQueryMs is the default threshold for slow query warnings.
const DefaultSlowQueryMs = 50

// TimedDB wraps a *sql.DB. It rebinds placeholders for the dialect, logs slow
// statements, and records timings to a collector when one is set.
type TimedDB struct {
	db        *sql.DB
	dialect   Dialect
	collector *perf.Collector
	threshold float64
}

var _ SQLDB = (*TimedDB)(nil)

// NewTimedDB wraps db. collector may be nil.
// PRE: db is a valid database connection speaking dialect
// POST: Returns a TimedDB that logs statements slower than DefaultSlowQueryMs
func NewTimedDB(db *sql.DB, dialect Dialect, collector *perf.Collector) *TimedDB {
	return &TimedDB{
		db:        db,
		dialect:   dialect,
		collector: collector,
		threshold: DefaultSlowQueryMs,
	}
}

// WithSlowThreshold overrides the slow-statement threshold.
func (t *TimedDB) WithSlowThreshold(ms int) *TimedDB {
	if ms > 0 {
		t.threshold = float64(ms)
	}
	return t
}

// Dialect reports the SQL flavour of the connection.
func (t *TimedDB) Dialect() Dialect {
	return t.dialect
}

// RawDB returns the underlying pool (for migrations, pool settings and Close).
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

// Ping verifies the connection.
func (t *TimedDB) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// Close closes the pool.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

func (t *TimedDB) record(op string, query string, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	if durationMs >= t.threshold {
		slog.Warn("slow_query", "op", op, "query", summarize(query), "duration_ms", durationMs)
	} else {
		slog.Debug("query", "op", op, "duration_ms", durationMs)
	}
	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       summarize(query),
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

// ExecContext runs a statement with timing.
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	defer t.record("exec", query, start)
	return t.db.ExecContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryContext runs a query with timing.
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	defer t.record("query", query, start)
	return t.db.QueryContext(ctx, t.dialect.Rebind(query), args...)
}

// QueryRowContext runs a single-row query with timing.
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	defer t.record("query_row", query, start)
	return t.db.QueryRowContext(ctx, t.dialect.Rebind(query), args...)
}

// InTx runs fn in a transaction. A panic or error from fn rolls back.
// PRE: fn only uses the Querier it is given
// POST: all of fn's statements are committed together, or none are
func (t *TimedDB) InTx(ctx context.Context, fn func(q Querier) error) (err error) {
	start := time.Now()
	defer t.record("tx", "transaction", start)

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&txQuerier{tx: tx, dialect: t.dialect}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// txQuerier rebinds placeholders inside a transaction.
type txQuerier struct {
	tx      *sql.Tx
	dialect Dialect
}

func (q *txQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.tx.ExecContext(ctx, q.dialect.Rebind(query), args...)
}

func (q *txQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.tx.QueryContext(ctx, q.dialect.Rebind(query), args...)
}

func (q *txQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return q.tx.QueryRowContext(ctx, q.dialect.Rebind(query), args...)
}

// summarize shortens a statement to its first line for logs and the perf dashboard.
func summarize(query string) string {
	const max = 80
	q := strings.TrimSpace(query)
	if i := strings.IndexByte(q, '\n'); i >= 0 {
		q = q[:i]
	}
	if len(q) > max {
		q = q[:max] + "..."
	}
	return q
}
