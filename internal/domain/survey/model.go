package survey

import (
	"errors"
	"math"
	"strings"
	"time"
)

// Score ranges
const (
	MinScore          = 1
	MaxScore          = 5
	MinRecommendation = 0
	MaxRecommendation = 10
)

// Net promoter buckets
const (
	BucketPromoter  = "promoter"
	BucketPassive   = "passive"
	BucketDetractor = "detractor"
)

// Max length constants for free text.
const (
	MaxCommentLength  = 4000
	MaxQuestionLength = 500
	MaxAnswerLength   = 4000
)

// Domain errors
var (
	ErrNoRegistration       = errors.New("survey must reference a registration")
	ErrScoreOutOfRange      = errors.New("scores must be between 1 and 5")
	ErrRecommendationRange  = errors.New("recommendation must be between 0 and 10")
	ErrCommentTooLong       = errors.New("comments cannot exceed 4000 characters")
	ErrEmptyQuestion        = errors.New("question cannot be empty")
	ErrQuestionAnswerLength = errors.New("question or answer is too long")
)

// Survey is the single post-event survey for one registration.
type Survey struct {
	ID             int64
	RegistrationID int64
	Satisfaction   int
	Usefulness     int
	Instructor     int
	Recommendation int
	OverallScore   float64
	NPSBucket      string
	Comments       string
	SubmittedAt    time.Time
}

// Response is a free-form question and answer attached to a survey.
type Response struct {
	ID       int64
	SurveyID int64
	Question string
	Answer   string
}

// BucketFor classifies a 0-10 recommendation score.
func BucketFor(recommendation int) string {
	switch {
	case recommendation >= 9:
		return BucketPromoter
	case recommendation <= 6:
		return BucketDetractor
	default:
		return BucketPassive
	}
}

// Validate checks scores and text lengths.
// PRE: Survey struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Survey) Validate() error {
	if s.RegistrationID <= 0 {
		return ErrNoRegistration
	}
	for _, score := range []int{s.Satisfaction, s.Usefulness, s.Instructor} {
		if score < MinScore || score > MaxScore {
			return ErrScoreOutOfRange
		}
	}
	if s.Recommendation < MinRecommendation || s.Recommendation > MaxRecommendation {
		return ErrRecommendationRange
	}
	if len(s.Comments) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

// Score fills the derived fields. Call after Validate succeeds.
// POST: OverallScore is the mean of the 1-5 scores rounded to two places; NPSBucket is set
func (s *Survey) Score() {
	mean := float64(s.Satisfaction+s.Usefulness+s.Instructor) / 3
	s.OverallScore = math.Round(mean*100) / 100
	s.NPSBucket = BucketFor(s.Recommendation)
}

// Validate checks a question/answer pair.
func (r *Response) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(r.Question) > MaxQuestionLength || len(r.Answer) > MaxAnswerLength {
		return ErrQuestionAnswerLength
	}
	return nil
}

// NPS computes the net promoter score (-100..100) from bucket counts.
// Returns 0 when there are no responses.
func NPS(promoters, passives, detractors int) int {
	total := promoters + passives + detractors
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(promoters-detractors) * 100 / float64(total)))
}
