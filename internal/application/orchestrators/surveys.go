package orchestrators

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ellarises/internal/adapters/storage"
	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/registration"
	"ellarises/internal/domain/survey"
)

// SurveyStore defines the store interface needed by the survey orchestrators.
type SurveyStore interface {
	Create(ctx context.Context, s survey.Survey, responses []survey.Response) (int64, error)
	ExistsForRegistration(ctx context.Context, registrationID int64) (bool, error)
	Delete(ctx context.Context, id int64) error
}

// RegistrationGetter loads one registration.
type RegistrationGetter interface {
	GetByID(ctx context.Context, id int64) (registration.Registration, error)
}

// SurveyDeps holds dependencies for the survey orchestrators.
type SurveyDeps struct {
	Surveys       SurveyStore
	Registrations RegistrationGetter
	Now           func() time.Time
}

// SurveyInput carries the survey form. Questions and Answers are parallel
// lists of optional free-form pairs; blank pairs are skipped.
type SurveyInput struct {
	RegistrationID int64
	ParticipantID  int64
	Satisfaction   string `validate:"required"`
	Usefulness     string `validate:"required"`
	Instructor     string `validate:"required"`
	Recommendation string `validate:"required"`
	Comments       string
	Questions      []string
	Answers        []string
}

var ErrSurveyTaken = apperr.Validation("You have already taken this survey")

// ExecuteSubmitSurvey stores the single survey for a registration.
// PRE: input.ParticipantID is the logged-in user's linked participant
// POST: Survey and responses stored together with the overall score and NPS bucket
// INVARIANT: At most one survey exists per registration
func ExecuteSubmitSurvey(ctx context.Context, input SurveyInput, deps SurveyDeps) (int64, error) {
	reg, err := deps.Registrations.GetByID(ctx, input.RegistrationID)
	if err != nil {
		return 0, storeFailure(err, "Registration", "load registration")
	}
	// Someone else's registration looks the same as a missing one.
	if reg.ParticipantID != input.ParticipantID {
		return 0, apperr.NotFound("Registration not found")
	}
	if !reg.CanTakeSurvey() {
		return 0, apperr.Validation("Surveys cannot be taken for a cancelled registration")
	}
	taken, err := deps.Surveys.ExistsForRegistration(ctx, reg.ID)
	if err != nil {
		return 0, apperr.Store("Unable to save survey", err)
	}
	if taken {
		return 0, ErrSurveyTaken
	}

	if err := checkInput(input); err != nil {
		return 0, err
	}
	s := survey.Survey{RegistrationID: reg.ID, Comments: strings.TrimSpace(input.Comments), SubmittedAt: deps.Now()}
	if s.Satisfaction, err = parseInt(input.Satisfaction, "Satisfaction"); err != nil {
		return 0, err
	}
	if s.Usefulness, err = parseInt(input.Usefulness, "Usefulness"); err != nil {
		return 0, err
	}
	if s.Instructor, err = parseInt(input.Instructor, "Instructor"); err != nil {
		return 0, err
	}
	if s.Recommendation, err = parseInt(input.Recommendation, "Recommendation"); err != nil {
		return 0, err
	}
	if err := s.Validate(); err != nil {
		return 0, invalid(err)
	}
	s.Score()

	responses, err := surveyResponses(input.Questions, input.Answers)
	if err != nil {
		return 0, err
	}

	id, err := deps.Surveys.Create(ctx, s, responses)
	if storage.IsUniqueViolation(err) {
		return 0, ErrSurveyTaken
	}
	if err != nil {
		return 0, storeFailure(err, "Registration", "save survey")
	}
	slog.Info("survey_event", "event", "survey_submitted", "survey_id", id,
		"registration_id", reg.ID, "nps_bucket", s.NPSBucket)
	return id, nil
}

func surveyResponses(questions, answers []string) ([]survey.Response, error) {
	var out []survey.Response
	for i, q := range questions {
		q = strings.TrimSpace(q)
		var a string
		if i < len(answers) {
			a = strings.TrimSpace(answers[i])
		}
		if q == "" && a == "" {
			continue
		}
		r := survey.Response{Question: q, Answer: a}
		if err := r.Validate(); err != nil {
			return nil, invalid(err)
		}
		out = append(out, r)
	}
	return out, nil
}

// ExecuteDeleteSurvey removes a survey and its responses.
func ExecuteDeleteSurvey(ctx context.Context, id int64, deps SurveyDeps) error {
	if err := deps.Surveys.Delete(ctx, id); err != nil {
		return storeFailure(err, "Survey", "delete survey")
	}
	slog.Info("survey_event", "event", "survey_deleted", "survey_id", id)
	return nil
}
