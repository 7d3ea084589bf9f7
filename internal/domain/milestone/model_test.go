package milestone

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMilestone_Validate(t *testing.T) {
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		m       Milestone
		wantErr error
	}{
		{"valid", Milestone{ParticipantID: 1, Title: "Finished robotics camp", AchievedOn: day}, nil},
		{"no owner", Milestone{Title: "x", AchievedOn: day}, ErrNoParticipant},
		{"blank title", Milestone{ParticipantID: 1, Title: "  ", AchievedOn: day}, ErrEmptyTitle},
		{"long title", Milestone{ParticipantID: 1, Title: strings.Repeat("t", 201), AchievedOn: day}, ErrTitleTooLong},
		{"no date", Milestone{ParticipantID: 1, Title: "x"}, ErrNoDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.m.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
