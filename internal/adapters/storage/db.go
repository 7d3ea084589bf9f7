package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// sqlitePragmas are applied to every pooled SQLite connection.
const sqlitePragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// Options selects and tunes a database connection.
type Options struct {
	Dialect      Dialect
	SQLitePath   string
	PostgresDSN  string
	MaxOpenConns int
}

// Open connects to the configured database and verifies the connection.
// PRE: opts.Dialect is sqlite (with SQLitePath) or postgres (with PostgresDSN)
// POST: returns a pinged pool; the caller owns Close
func Open(ctx context.Context, opts Options) (*sql.DB, error) {
	var dsn string
	switch opts.Dialect {
	case DialectSQLite:
		dsn = opts.SQLitePath + sqlitePragmas
	case DialectPostgres:
		dsn = opts.PostgresDSN
	default:
		return nil, fmt.Errorf("unsupported dialect %q", opts.Dialect)
	}

	db, err := sql.Open(opts.Dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.Dialect, err)
	}
	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen / 2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", opts.Dialect, err)
	}
	return db, nil
}

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	stmts   []string
}

// LatestSchemaVersion is the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the applied schema version, or 0 for an empty database.
func SchemaVersion(ctx context.Context, db *sql.DB, dialect Dialect) (int, error) {
	exists, err := tableExists(ctx, db, dialect, "schema_version")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB applies every migration newer than the current schema version.
// Each migration runs in its own transaction.
// PRE: db is connected with the given dialect
// POST: SchemaVersion == LatestSchemaVersion
func MigrateDB(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := SchemaVersion(ctx, db, dialect)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, dialect, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		slog.Info("schema_migrated", "version", m.version, "name", m.name)
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, dialect Dialect, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.ExecContext(ctx, dialect.ddl(stmt)); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		dialect.Rebind("INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)"),
		m.version, m.name, time.Now().UTC().Format(TimeLayout),
	); err != nil {
		return err
	}
	return tx.Commit()
}

func tableExists(ctx context.Context, db *sql.DB, dialect Dialect, name string) (bool, error) {
	query := "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	if dialect == DialectPostgres {
		query = "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?"
	}
	var n int
	if err := db.QueryRowContext(ctx, dialect.Rebind(query), name).Scan(&n); err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}
