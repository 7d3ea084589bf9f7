package participant

import (
	"context"
	"errors"
	"testing"
	"time"

	"ellarises/internal/adapters/storage"
	"ellarises/internal/adapters/storage/storagetest"
	"ellarises/internal/adapters/storage/user"
	domain "ellarises/internal/domain/participant"
	domainUser "ellarises/internal/domain/user"
)

func newParticipant(first, last, email string) domain.Participant {
	return domain.Participant{
		FirstName:   first,
		LastName:    last,
		Email:       email,
		Role:        domain.RoleParticipant,
		DateOfBirth: time.Date(2008, 3, 14, 0, 0, 0, 0, time.UTC),
		City:        "Provo",
	}
}

func TestSQLStore_CreateAndGet(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)

		id, err := store.Create(ctx, newParticipant("Ana", "Lopez", " Ana@Example.org "))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		got, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Email != "ana@example.org" {
			t.Errorf("Email = %q, want normalized", got.Email)
		}
		if got.DateOfBirth.Format(storage.DateLayout) != "2008-03-14" {
			t.Errorf("DateOfBirth = %v", got.DateOfBirth)
		}
		if got.TotalDonationsCents != 0 {
			t.Errorf("TotalDonationsCents = %d, want 0", got.TotalDonationsCents)
		}

		byEmail, err := store.GetByEmail(ctx, "ANA@example.org")
		if err != nil || byEmail.ID != id {
			t.Errorf("GetByEmail = %v, %v", byEmail.ID, err)
		}
	})
}

func TestSQLStore_DuplicateEmailRejected(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)

		if _, err := store.Create(ctx, newParticipant("Ana", "Lopez", "ana@example.org")); err != nil {
			t.Fatalf("Create: %v", err)
		}
		_, err := store.Create(ctx, newParticipant("Other", "Ana", "ANA@example.org"))
		if !storage.IsUniqueViolation(err) {
			t.Fatalf("err = %v, want unique violation", err)
		}
	})
}

func TestSQLStore_GetMissing(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		_, err := NewSQLStore(db).GetByID(context.Background(), 999)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLStore_ListSearchAndCount(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)
		for _, p := range []domain.Participant{
			newParticipant("Ana", "Lopez", "ana@example.org"),
			newParticipant("Bea", "Smith", "bea@example.org"),
			newParticipant("Cora", "Lopez", "cora@example.org"),
		} {
			if _, err := store.Create(ctx, p); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}

		got, err := store.List(ctx, ListFilter{Search: "lopez", Sort: "name", Limit: 10})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 2 || got[0].FirstName != "Ana" || got[1].FirstName != "Cora" {
			t.Errorf("List = %+v, want Ana then Cora", got)
		}

		n, err := store.Count(ctx, ListFilter{Search: "LOPEZ"})
		if err != nil || n != 2 {
			t.Errorf("Count = %d, %v; want 2", n, err)
		}

		// LIKE wildcards in the search match only themselves.
		n, err = store.Count(ctx, ListFilter{Search: "%"})
		if err != nil || n != 0 {
			t.Errorf("Count(%%) = %d, %v; want 0", n, err)
		}
	})
}

func TestSQLStore_SearchUnderscoreEmail(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)
		for _, p := range []domain.Participant{
			newParticipant("Ana", "Lopez", "ana_lopez@example.org"),
			newParticipant("Anna", "Xlopez", "anaxlopez@example.org"),
		} {
			if _, err := store.Create(ctx, p); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}

		tests := []struct {
			search string
			want   int
		}{
			{"ana_lopez", 1},
			{"ANA_LOPEZ@example.org", 1},
			{"_lopez", 1},
			{"lopez@", 2},
			{`\`, 0},
		}
		for _, tt := range tests {
			n, err := store.Count(ctx, ListFilter{Search: tt.search})
			if err != nil || n != tt.want {
				t.Errorf("Count(%q) = %d, %v; want %d", tt.search, n, err, tt.want)
			}
		}
	})
}

func TestSQLStore_UpdateMissing(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		p := newParticipant("Ana", "Lopez", "ana@example.org")
		p.ID = 42
		if err := NewSQLStore(db).Update(context.Background(), p); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLStore_DeleteUnlinksUsers(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)
		users := user.NewSQLStore(db)

		id, err := store.Create(ctx, newParticipant("Ana", "Lopez", "ana@example.org"))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		userID, err := users.Create(ctx, domainUser.User{
			Email: "ana@example.org", PasswordHash: "x", Level: domainUser.LevelUser, ParticipantID: id,
		})
		if err != nil {
			t.Fatalf("create user: %v", err)
		}

		deps, err := store.Dependents(ctx, id)
		if err != nil || deps.Any() {
			t.Fatalf("Dependents = %+v, %v; want none", deps, err)
		}
		if err := store.Delete(ctx, id); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		u, err := users.GetByID(ctx, userID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if u.HasParticipant() {
			t.Errorf("user still linked to participant %d", u.ParticipantID)
		}
		if err := store.Delete(ctx, id); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second Delete err = %v, want ErrNotFound", err)
		}
	})
}
