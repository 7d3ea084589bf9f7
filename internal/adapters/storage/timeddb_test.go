package storage

import (
	"context"
	"errors"
	"testing"

	"ellarises/internal/adapters/http/perf"
)

func openTimedTestDB(t *testing.T, collector *perf.Collector) *TimedDB {
	t.Helper()
	db := openTestDB(t)
	if _, err := db.Exec("CREATE TABLE test (id TEXT PRIMARY KEY, val TEXT)"); err != nil {
		t.Fatal(err)
	}
	return NewTimedDB(db, DialectSQLite, collector)
}

func TestTimedDB_RecordsQueries(t *testing.T) {
	collector := perf.NewCollector(100)
	tdb := openTimedTestDB(t, collector)
	ctx := context.Background()

	if _, err := tdb.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "hello"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	var val string
	if err := tdb.QueryRowContext(ctx, "SELECT val FROM test WHERE id = ?", "1").Scan(&val); err != nil {
		t.Fatalf("QueryRowContext: %v", err)
	}
	if val != "hello" {
		t.Errorf("val = %q", val)
	}
	if collector.TotalRecorded() != 2 {
		t.Errorf("TotalRecorded = %d, want 2", collector.TotalRecorded())
	}
}

func TestTimedDB_NilCollector(t *testing.T) {
	tdb := openTimedTestDB(t, nil)
	if _, err := tdb.ExecContext(context.Background(), "INSERT INTO test (id, val) VALUES (?, ?)", "1", "x"); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
}

func TestTimedDB_InTxCommits(t *testing.T) {
	tdb := openTimedTestDB(t, nil)
	ctx := context.Background()

	err := tdb.InTx(ctx, func(q Querier) error {
		if _, err := q.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "a"); err != nil {
			return err
		}
		_, err := q.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "2", "b")
		return err
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	var n int
	tdb.QueryRowContext(ctx, "SELECT COUNT(*) FROM test").Scan(&n)
	if n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}
}

func TestTimedDB_InTxRollsBack(t *testing.T) {
	tdb := openTimedTestDB(t, nil)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tdb.InTx(ctx, func(q Querier) error {
		if _, err := q.ExecContext(ctx, "INSERT INTO test (id, val) VALUES (?, ?)", "1", "a"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx = %v, want boom", err)
	}
	var n int
	tdb.QueryRowContext(ctx, "SELECT COUNT(*) FROM test").Scan(&n)
	if n != 0 {
		t.Errorf("rows = %d, want 0 after rollback", n)
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize("\n\t\tSELECT a\n\t\tFROM b"); got != "SELECT a" {
		t.Errorf("summarize = %q", got)
	}
	long := "SELECT " + string(make([]byte, 100))
	if got := summarize(long); len(got) != 83 {
		t.Errorf("len(summarize(long)) = %d, want 83", len(got))
	}
}
