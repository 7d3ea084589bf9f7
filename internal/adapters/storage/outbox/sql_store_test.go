package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"ellarises/internal/adapters/storage"
	"ellarises/internal/adapters/storage/storagetest"
	domain "ellarises/internal/domain/outbox"
)

func TestSQLStore_SaveUpsertsAndLists(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)
		now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

		first := domain.NewEntry("a", domain.ActionEmail, `{"to":"a@example.org"}`, now)
		second := domain.NewEntry("b", domain.ActionEmail, `{"to":"b@example.org"}`, now.Add(time.Minute))
		for _, e := range []domain.Entry{first, second} {
			if err := store.Save(ctx, e); err != nil {
				t.Fatalf("Save: %v", err)
			}
		}

		pending, err := store.ListPending(ctx, 10)
		if err != nil {
			t.Fatalf("ListPending: %v", err)
		}
		if len(pending) != 2 || pending[0].ID != "a" {
			t.Fatalf("pending = %+v, want a then b", pending)
		}

		first.MaxAttempts = 1
		first.MarkAttempt(now.Add(time.Hour))
		first.MarkFailed(errors.New("provider down"))
		if err := store.Save(ctx, first); err != nil {
			t.Fatalf("Save update: %v", err)
		}

		got, err := store.GetByID(ctx, "a")
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status != domain.StatusFailed || got.Attempts != 1 || got.ErrorMessage != "provider down" {
			t.Errorf("entry = %+v", got)
		}
		if !got.LastAttemptedAt.Equal(now.Add(time.Hour)) {
			t.Errorf("LastAttemptedAt = %v", got.LastAttemptedAt)
		}

		failed, err := store.ListFailed(ctx, 10)
		if err != nil || len(failed) != 1 || failed[0].ID != "a" {
			t.Errorf("ListFailed = %+v, %v", failed, err)
		}
		counts, err := store.CountByStatus(ctx)
		if err != nil {
			t.Fatalf("CountByStatus: %v", err)
		}
		if counts[domain.StatusFailed] != 1 || counts[domain.StatusPending] != 1 {
			t.Errorf("counts = %v", counts)
		}
		recent, err := store.ListRecent(ctx, 1)
		if err != nil || len(recent) != 1 || recent[0].ID != "b" {
			t.Errorf("ListRecent = %+v, %v", recent, err)
		}
	})
}

func TestSQLStore_GetMissingEntry(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		_, err := NewSQLStore(db).GetByID(context.Background(), "nope")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
