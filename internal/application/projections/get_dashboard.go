package projections

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	donationStore "ellarises/internal/adapters/storage/donation"
	eventStore "ellarises/internal/adapters/storage/event"
	milestoneStore "ellarises/internal/adapters/storage/milestone"
	participantStore "ellarises/internal/adapters/storage/participant"
	registrationStore "ellarises/internal/adapters/storage/registration"
	surveyStore "ellarises/internal/adapters/storage/survey"
	"ellarises/internal/domain/participant"
)

// upcomingLimit is how many upcoming occurrences the dashboard lists.
const upcomingLimit = 5

// DashboardOutboxStore counts queued emails by status.
type DashboardOutboxStore interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// GetDashboardDeps holds dependencies for the dashboard projection.
type GetDashboardDeps struct {
	Participants  ParticipantStore
	Milestones    MilestoneStore
	Donations     DonationStore
	Events        EventStore
	Registrations RegistrationStore
	Surveys       SurveyStore
	Outbox        DashboardOutboxStore // optional: nil leaves EmailCounts empty
}

// DashboardResult carries the manager dashboard figures.
type DashboardResult struct {
	Participants  int
	RoleCounts    map[string]int
	Milestones    int
	Donations     int
	DonationCents int64
	Registrations int
	Surveys       surveyStore.BucketCounts
	Upcoming      []OccurrenceRow
	EmailCounts   map[string]int
}

// QueryGetDashboard gathers the manager dashboard figures concurrently.
// PRE: now is the request time
// POST: Every figure is loaded, or the first store error is returned
func QueryGetDashboard(ctx context.Context, now time.Time, deps GetDashboardDeps) (DashboardResult, error) {
	result := DashboardResult{RoleCounts: make(map[string]int, len(participant.ValidRoles))}
	roleCounts := make([]int, len(participant.ValidRoles))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result.Participants, err = deps.Participants.Count(gctx, participantStore.ListFilter{})
		return err
	})
	for i, role := range participant.ValidRoles {
		g.Go(func() error {
			var err error
			roleCounts[i], err = deps.Participants.Count(gctx, participantStore.ListFilter{Role: role})
			return err
		})
	}
	g.Go(func() error {
		var err error
		result.Milestones, err = deps.Milestones.Count(gctx, milestoneStore.ListFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		if result.Donations, err = deps.Donations.Count(gctx, donationStore.ListFilter{}); err != nil {
			return err
		}
		result.DonationCents, err = deps.Donations.Sum(gctx, donationStore.ListFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		result.Registrations, err = deps.Registrations.Count(gctx, registrationStore.ListFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		result.Surveys, err = deps.Surveys.BucketCounts(gctx)
		return err
	})
	g.Go(func() error {
		views, err := deps.Events.ListOccurrences(gctx, eventStore.ListFilter{From: now, Limit: upcomingLimit})
		if err != nil {
			return err
		}
		result.Upcoming = make([]OccurrenceRow, 0, len(views))
		for _, v := range views {
			result.Upcoming = append(result.Upcoming, occurrenceRow(v, now))
		}
		return nil
	})
	if deps.Outbox != nil {
		g.Go(func() error {
			var err error
			result.EmailCounts, err = deps.Outbox.CountByStatus(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return DashboardResult{}, loadFailure(err, "Dashboard")
	}

	for i, role := range participant.ValidRoles {
		result.RoleCounts[role] = roleCounts[i]
	}
	return result, nil
}
