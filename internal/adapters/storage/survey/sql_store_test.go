package survey

import (
	"context"
	"errors"
	"testing"
	"time"

	"ellarises/internal/adapters/storage"
	"ellarises/internal/adapters/storage/event"
	"ellarises/internal/adapters/storage/participant"
	"ellarises/internal/adapters/storage/registration"
	"ellarises/internal/adapters/storage/storagetest"
	domainEvent "ellarises/internal/domain/event"
	domainParticipant "ellarises/internal/domain/participant"
	domainRegistration "ellarises/internal/domain/registration"
	domain "ellarises/internal/domain/survey"
)

// seedRegistrations creates one attended registration per email.
func seedRegistrations(t *testing.T, db storage.SQLDB, emails ...string) []int64 {
	t.Helper()
	ctx := context.Background()
	es := event.NewSQLStore(db)
	tmpl, err := es.CreateTemplate(ctx, domainEvent.Template{Name: "Dance Recital", Type: domainEvent.TypeRecital, Recurrence: domainEvent.RecurrenceAnnual})
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}
	loc, err := es.CreateLocation(ctx, domainEvent.Location{Name: "Theatre"})
	if err != nil {
		t.Fatalf("seed location: %v", err)
	}
	occ, err := es.CreateOccurrence(ctx, domainEvent.Occurrence{
		TemplateID: tmpl, LocationID: loc, StartsAt: time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed occurrence: %v", err)
	}

	var ids []int64
	for _, email := range emails {
		pid, err := participant.NewSQLStore(db).Create(ctx, domainParticipant.Participant{
			FirstName: "Mia", LastName: "Chen", Email: email, Role: domainParticipant.RoleParticipant,
		})
		if err != nil {
			t.Fatalf("seed participant: %v", err)
		}
		rid, err := registration.NewSQLStore(db).CreateWithinCapacity(ctx, domainRegistration.Registration{
			ParticipantID: pid, OccurrenceID: occ, Status: domainRegistration.StatusAttended,
		}, 0)
		if err != nil {
			t.Fatalf("seed registration: %v", err)
		}
		ids = append(ids, rid)
	}
	return ids
}

func scored(registrationID int64, recommendation int) domain.Survey {
	s := domain.Survey{
		RegistrationID: registrationID,
		Satisfaction:   5,
		Usefulness:     4,
		Instructor:     5,
		Recommendation: recommendation,
	}
	s.Score()
	return s
}

func TestSQLStore_CreateWithResponses(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)
		regs := seedRegistrations(t, db, "mia@example.org")

		id, err := store.Create(ctx, scored(regs[0], 10), []domain.Response{
			{Question: "Favourite part?", Answer: "The finale"},
			{Question: "Anything to improve?", Answer: "More chairs"},
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		v, err := store.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if v.NPSBucket != domain.BucketPromoter || v.EventName != "Dance Recital" || v.FirstName != "Mia" {
			t.Errorf("view = %+v", v)
		}
		if v.OverallScore != 4.67 {
			t.Errorf("OverallScore = %v, want 4.67", v.OverallScore)
		}

		responses, err := store.Responses(ctx, id)
		if err != nil {
			t.Fatalf("Responses: %v", err)
		}
		if len(responses) != 2 || responses[0].Answer != "The finale" {
			t.Errorf("responses = %+v", responses)
		}

		exists, err := store.ExistsForRegistration(ctx, regs[0])
		if err != nil || !exists {
			t.Errorf("ExistsForRegistration = %v, %v", exists, err)
		}
	})
}

func TestSQLStore_OneSurveyPerRegistration(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)
		regs := seedRegistrations(t, db, "mia@example.org")

		if _, err := store.Create(ctx, scored(regs[0], 8), nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
		_, err := store.Create(ctx, scored(regs[0], 3), []domain.Response{{Question: "Q", Answer: "A"}})
		if !storage.IsUniqueViolation(err) {
			t.Fatalf("err = %v, want unique violation", err)
		}
		n, err := store.Count(ctx, ListFilter{})
		if err != nil || n != 1 {
			t.Errorf("Count = %d, %v; want 1", n, err)
		}
	})
}

func TestSQLStore_UnknownRegistration(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		_, err := NewSQLStore(db).Create(context.Background(), scored(404, 9), nil)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLStore_DeleteRemovesResponses(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)
		regs := seedRegistrations(t, db, "mia@example.org")

		id, err := store.Create(ctx, scored(regs[0], 7), []domain.Response{{Question: "Q", Answer: "A"}})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := store.Delete(ctx, id); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		responses, err := store.Responses(ctx, id)
		if err != nil || len(responses) != 0 {
			t.Errorf("responses after delete = %+v, %v", responses, err)
		}
		if err := store.Delete(ctx, id); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second Delete err = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLStore_BucketCounts(t *testing.T) {
	storagetest.ForEachDialect(t, func(t *testing.T, db *storage.TimedDB) {
		ctx := context.Background()
		store := NewSQLStore(db)
		regs := seedRegistrations(t, db, "a@example.org", "b@example.org", "c@example.org", "d@example.org")

		for i, rec := range []int{10, 9, 7, 2} {
			if _, err := store.Create(ctx, scored(regs[i], rec), nil); err != nil {
				t.Fatalf("Create: %v", err)
			}
		}
		b, err := store.BucketCounts(ctx)
		if err != nil {
			t.Fatalf("BucketCounts: %v", err)
		}
		if b.Promoters != 2 || b.Passives != 1 || b.Detractors != 1 {
			t.Errorf("counts = %+v", b)
		}
		if b.Total() != 4 || b.NPS() != 25 {
			t.Errorf("Total/NPS = %d/%d, want 4/25", b.Total(), b.NPS())
		}

		list, err := store.List(ctx, ListFilter{Search: "detractor", Limit: 10})
		if err != nil || len(list) != 1 || list[0].Recommendation != 2 {
			t.Errorf("List = %+v, %v", list, err)
		}
	})
}
