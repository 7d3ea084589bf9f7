package survey

import (
	"context"
	"time"

	domain "ellarises/internal/domain/survey"
)

// Store persists surveys and their free-form responses.
type Store interface {
	// Create inserts a survey and its responses in one transaction. A second
	// survey for the same registration surfaces as a unique violation.
	Create(ctx context.Context, s domain.Survey, responses []domain.Response) (int64, error)
	GetByID(ctx context.Context, id int64) (View, error)
	ExistsForRegistration(ctx context.Context, registrationID int64) (bool, error)
	Responses(ctx context.Context, surveyID int64) ([]domain.Response, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]View, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	BucketCounts(ctx context.Context) (BucketCounts, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Search string // matches participant name, event name or bucket
	Limit  int
	Offset int
}

// View is a survey with the names needed to display it.
type View struct {
	domain.Survey
	ParticipantID int64
	FirstName     string
	LastName      string
	EventName     string
	StartsAt      time.Time
}

// BucketCounts tallies surveys per NPS bucket.
type BucketCounts struct {
	Promoters  int
	Passives   int
	Detractors int
}

// Total is the number of surveys counted.
func (b BucketCounts) Total() int {
	return b.Promoters + b.Passives + b.Detractors
}

// NPS is the net promoter score for the counts.
func (b BucketCounts) NPS() int {
	return domain.NPS(b.Promoters, b.Passives, b.Detractors)
}
