package projections

import (
	"context"

	registrationStore "ellarises/internal/adapters/storage/registration"
	surveyStore "ellarises/internal/adapters/storage/survey"
	userStore "ellarises/internal/adapters/storage/user"
	"ellarises/internal/application/listutil"
	"ellarises/internal/domain/survey"
	"ellarises/internal/domain/user"
)

// ListSurveysResult is one page of surveys plus the NPS breakdown of all surveys.
type ListSurveysResult struct {
	Surveys []surveyStore.View
	Page    listutil.PageInfo
	Buckets surveyStore.BucketCounts
}

// ListSurveysDeps holds dependencies for QueryListSurveys.
type ListSurveysDeps struct {
	Surveys SurveyStore
}

// QueryListSurveys returns one page of surveys, newest first.
// INVARIANT: Buckets always covers every survey, whatever the search
func QueryListSurveys(ctx context.Context, params listutil.Params, deps ListSurveysDeps) (ListSurveysResult, error) {
	filter := surveyStore.ListFilter{Search: params.Search}
	total, err := deps.Surveys.Count(ctx, filter)
	if err != nil {
		return ListSurveysResult{}, loadFailure(err, "Surveys")
	}
	page := listutil.NewPageInfo(params, total)
	filter.Limit, filter.Offset = page.PerPage, page.Offset()
	rows, err := deps.Surveys.List(ctx, filter)
	if err != nil {
		return ListSurveysResult{}, loadFailure(err, "Surveys")
	}
	buckets, err := deps.Surveys.BucketCounts(ctx)
	if err != nil {
		return ListSurveysResult{}, loadFailure(err, "Surveys")
	}
	return ListSurveysResult{Surveys: rows, Page: page, Buckets: buckets}, nil
}

// SurveyDetail is one survey with its free-form responses.
type SurveyDetail struct {
	surveyStore.View
	Responses []survey.Response
}

// QueryGetSurvey loads one survey and its responses.
func QueryGetSurvey(ctx context.Context, id int64, deps ListSurveysDeps) (SurveyDetail, error) {
	v, err := deps.Surveys.GetByID(ctx, id)
	if err != nil {
		return SurveyDetail{}, loadFailure(err, "Survey")
	}
	responses, err := deps.Surveys.Responses(ctx, id)
	if err != nil {
		return SurveyDetail{}, loadFailure(err, "Survey")
	}
	return SurveyDetail{View: v, Responses: responses}, nil
}

// ListRegistrationsResult is one page of registrations.
type ListRegistrationsResult struct {
	Registrations []registrationStore.View
	Page          listutil.PageInfo
}

// ListRegistrationsDeps holds dependencies for QueryListRegistrations.
type ListRegistrationsDeps struct {
	Registrations RegistrationStore
}

// QueryListRegistrations returns one page of registrations with participant and event names.
func QueryListRegistrations(ctx context.Context, params listutil.Params, deps ListRegistrationsDeps) (ListRegistrationsResult, error) {
	filter := registrationStore.ListFilter{Search: params.Search}
	total, err := deps.Registrations.Count(ctx, filter)
	if err != nil {
		return ListRegistrationsResult{}, loadFailure(err, "Registrations")
	}
	page := listutil.NewPageInfo(params, total)
	filter.Limit, filter.Offset = page.PerPage, page.Offset()
	rows, err := deps.Registrations.List(ctx, filter)
	if err != nil {
		return ListRegistrationsResult{}, loadFailure(err, "Registrations")
	}
	return ListRegistrationsResult{Registrations: rows, Page: page}, nil
}

// QueryGetRegistration loads one registration with names for the edit page.
func QueryGetRegistration(ctx context.Context, id int64, deps ListRegistrationsDeps) (registrationStore.View, error) {
	v, err := deps.Registrations.GetView(ctx, id)
	if err != nil {
		return registrationStore.View{}, loadFailure(err, "Registration")
	}
	return v, nil
}

// ListUsersQuery carries the user listing parameters.
type ListUsersQuery struct {
	listutil.Params
	Level string // empty lists both levels
}

// ListUsersResult is one page of users.
type ListUsersResult struct {
	Users []user.User
	Page  listutil.PageInfo
	Level string
}

// ListUsersDeps holds dependencies for QueryListUsers.
type ListUsersDeps struct {
	Users UserStore
}

// QueryListUsers returns one page of login accounts. Password hashes stay in the rows
// but templates never render them.
func QueryListUsers(ctx context.Context, query ListUsersQuery, deps ListUsersDeps) (ListUsersResult, error) {
	if query.Level != user.LevelManager && query.Level != user.LevelUser {
		query.Level = ""
	}
	filter := userStore.ListFilter{Search: query.Search, Level: query.Level}
	total, err := deps.Users.Count(ctx, filter)
	if err != nil {
		return ListUsersResult{}, loadFailure(err, "Users")
	}
	page := listutil.NewPageInfo(query.Params, total)
	filter.Limit, filter.Offset = page.PerPage, page.Offset()
	rows, err := deps.Users.List(ctx, filter)
	if err != nil {
		return ListUsersResult{}, loadFailure(err, "Users")
	}
	return ListUsersResult{Users: rows, Page: page, Level: query.Level}, nil
}
