// Package storagetest opens migrated databases for store tests.
//
// Every test gets a fresh SQLite file. When ELLA_TEST_POSTGRES_URL is set,
// ForEachDialect also runs the test against that Postgres database after
// dropping and recreating its public schema, so point it at a throwaway database.
package storagetest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ellarises/internal/adapters/storage"
)

// PostgresURLEnv names the variable holding an optional Postgres test DSN.
const PostgresURLEnv = "ELLA_TEST_POSTGRES_URL"

// OpenSQLite returns a migrated SQLite database that is closed when the test ends.
func OpenSQLite(t testing.TB) *storage.TimedDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	return open(t, storage.Options{Dialect: storage.DialectSQLite, SQLitePath: path})
}

// OpenPostgres returns a migrated Postgres database with an empty schema,
// skipping the test when no DSN is configured.
func OpenPostgres(t testing.TB) *storage.TimedDB {
	t.Helper()
	dsn := os.Getenv(PostgresURLEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresURLEnv)
	}
	db, err := storage.Open(context.Background(), storage.Options{Dialect: storage.DialectPostgres, PostgresDSN: dsn, MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	if _, err := db.Exec("DROP SCHEMA public CASCADE; CREATE SCHEMA public"); err != nil {
		db.Close()
		t.Fatalf("reset postgres schema: %v", err)
	}
	db.Close()
	return open(t, storage.Options{Dialect: storage.DialectPostgres, PostgresDSN: dsn, MaxOpenConns: 4})
}

// ForEachDialect runs fn against SQLite and, when configured, Postgres.
func ForEachDialect(t *testing.T, fn func(t *testing.T, db *storage.TimedDB)) {
	t.Helper()
	t.Run("sqlite", func(t *testing.T) { fn(t, OpenSQLite(t)) })
	if os.Getenv(PostgresURLEnv) != "" {
		t.Run("postgres", func(t *testing.T) { fn(t, OpenPostgres(t)) })
	}
}

func open(t testing.TB, opts storage.Options) *storage.TimedDB {
	t.Helper()
	ctx := context.Background()
	db, err := storage.Open(ctx, opts)
	if err != nil {
		t.Fatalf("open %s: %v", opts.Dialect, err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(ctx, db, opts.Dialect); err != nil {
		t.Fatalf("migrate %s: %v", opts.Dialect, err)
	}
	return storage.NewTimedDB(db, opts.Dialect, nil)
}
