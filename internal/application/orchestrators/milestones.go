package orchestrators

import (
	"context"
	"log/slog"

	"ellarises/internal/domain/milestone"
)

// MilestoneStore defines the store interface needed by the milestone orchestrators.
type MilestoneStore interface {
	Add(ctx context.Context, m milestone.Milestone) (milestone.Milestone, error)
	Get(ctx context.Context, participantID int64, number int) (milestone.Milestone, error)
	Update(ctx context.Context, m milestone.Milestone) error
	Delete(ctx context.Context, participantID int64, number int) error
}

// MilestoneDeps holds dependencies for the milestone orchestrators.
type MilestoneDeps struct {
	Milestones MilestoneStore
}

// MilestoneInput carries the milestone form. Participant is the selected
// participant id; the per-participant routes fill it from the path.
type MilestoneInput struct {
	Participant string `validate:"required"`
	Title       string `validate:"required"`
	Date        string `validate:"required"`
}

// ExecuteAddMilestone records a milestone numbered after the participant's highest one.
// PRE: none
// POST: Returns the stored milestone with its number; unknown participant is NotFound
func ExecuteAddMilestone(ctx context.Context, input MilestoneInput, deps MilestoneDeps) (milestone.Milestone, error) {
	if err := checkInput(input); err != nil {
		return milestone.Milestone{}, err
	}
	pid, err := parseRef(input.Participant, "participant")
	if err != nil {
		return milestone.Milestone{}, err
	}
	day, err := parseDate(input.Date, "Date")
	if err != nil {
		return milestone.Milestone{}, err
	}
	m := milestone.Milestone{ParticipantID: pid, Title: input.Title, AchievedOn: day}
	if err := m.Validate(); err != nil {
		return milestone.Milestone{}, invalid(err)
	}

	m, err = deps.Milestones.Add(ctx, m)
	if err != nil {
		return milestone.Milestone{}, storeFailure(err, "Participant", "add milestone")
	}
	slog.Info("milestone_event", "event", "milestone_added", "participant_id", m.ParticipantID, "number", m.Number)
	return m, nil
}

// ExecuteUpdateMilestone edits title and date. The key never changes.
// POST: Row updated, or NotFound
func ExecuteUpdateMilestone(ctx context.Context, participantID int64, number int, input MilestoneInput, deps MilestoneDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	m, err := deps.Milestones.Get(ctx, participantID, number)
	if err != nil {
		return storeFailure(err, "Milestone", "load milestone")
	}
	day, err := parseDate(input.Date, "Date")
	if err != nil {
		return err
	}
	m.Title = input.Title
	m.AchievedOn = day
	if err := m.Validate(); err != nil {
		return invalid(err)
	}
	if err := deps.Milestones.Update(ctx, m); err != nil {
		return storeFailure(err, "Milestone", "update milestone")
	}
	return nil
}

// ExecuteDeleteMilestone removes one milestone. Other numbers are untouched.
func ExecuteDeleteMilestone(ctx context.Context, participantID int64, number int, deps MilestoneDeps) error {
	if err := deps.Milestones.Delete(ctx, participantID, number); err != nil {
		return storeFailure(err, "Milestone", "delete milestone")
	}
	slog.Info("milestone_event", "event", "milestone_deleted", "participant_id", participantID, "number", number)
	return nil
}
