package survey

import (
	"errors"
	"testing"
)

func TestBucketFor_EveryScore(t *testing.T) {
	for score := MinRecommendation; score <= MaxRecommendation; score++ {
		want := BucketPassive
		if score >= 9 {
			want = BucketPromoter
		} else if score <= 6 {
			want = BucketDetractor
		}
		if got := BucketFor(score); got != want {
			t.Errorf("BucketFor(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestBucketFor_Boundaries(t *testing.T) {
	tests := map[int]string{6: BucketDetractor, 7: BucketPassive, 8: BucketPassive, 9: BucketPromoter, 10: BucketPromoter, 0: BucketDetractor}
	for score, want := range tests {
		if got := BucketFor(score); got != want {
			t.Errorf("BucketFor(%d) = %q, want %q", score, got, want)
		}
	}
}

func TestSurvey_Validate(t *testing.T) {
	valid := Survey{RegistrationID: 1, Satisfaction: 5, Usefulness: 4, Instructor: 3, Recommendation: 9}
	tests := []struct {
		name    string
		mutate  func(s *Survey)
		wantErr error
	}{
		{"valid", func(s *Survey) {}, nil},
		{"no registration", func(s *Survey) { s.RegistrationID = 0 }, ErrNoRegistration},
		{"satisfaction zero", func(s *Survey) { s.Satisfaction = 0 }, ErrScoreOutOfRange},
		{"instructor six", func(s *Survey) { s.Instructor = 6 }, ErrScoreOutOfRange},
		{"recommendation eleven", func(s *Survey) { s.Recommendation = 11 }, ErrRecommendationRange},
		{"recommendation negative", func(s *Survey) { s.Recommendation = -1 }, ErrRecommendationRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			if err := s.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSurvey_Score(t *testing.T) {
	s := Survey{Satisfaction: 5, Usefulness: 4, Instructor: 4, Recommendation: 7}
	s.Score()
	if s.OverallScore != 4.33 {
		t.Errorf("OverallScore = %v, want 4.33", s.OverallScore)
	}
	if s.NPSBucket != BucketPassive {
		t.Errorf("NPSBucket = %q, want passive", s.NPSBucket)
	}
}

func TestNPS(t *testing.T) {
	if got := NPS(0, 0, 0); got != 0 {
		t.Errorf("NPS(empty) = %d", got)
	}
	if got := NPS(6, 2, 2); got != 40 {
		t.Errorf("NPS(6,2,2) = %d, want 40", got)
	}
	if got := NPS(0, 0, 3); got != -100 {
		t.Errorf("NPS(0,0,3) = %d, want -100", got)
	}
}

func TestResponse_Validate(t *testing.T) {
	if err := (&Response{Question: "Favourite part?", Answer: "Robots"}).Validate(); err != nil {
		t.Errorf("valid response: %v", err)
	}
	if err := (&Response{Question: " "}).Validate(); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("blank question: %v", err)
	}
}
