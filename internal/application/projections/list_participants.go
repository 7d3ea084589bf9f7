package projections

import (
	"context"

	participantStore "ellarises/internal/adapters/storage/participant"
	"ellarises/internal/application/listutil"
	"ellarises/internal/domain/participant"
)

// ParticipantSortKeys are the sort keys the participant listing accepts.
var ParticipantSortKeys = []string{"name", "email", "role", "donations", "created"}

// ListParticipantsQuery carries the participant listing parameters.
type ListParticipantsQuery struct {
	listutil.Params
	Role string // empty lists every role
}

// ListParticipantsResult is one page of participants.
type ListParticipantsResult struct {
	Participants []participant.Participant
	Page         listutil.PageInfo
	Role         string
}

// ListParticipantsDeps holds dependencies for QueryListParticipants.
type ListParticipantsDeps struct {
	Participants ParticipantStore
}

// QueryListParticipants returns one page of participants matching the search.
// PRE: query.Params came from listutil.Parse
// POST: Page reflects the filtered total
func QueryListParticipants(ctx context.Context, query ListParticipantsQuery, deps ListParticipantsDeps) (ListParticipantsResult, error) {
	if !participant.IsValidRole(query.Role) {
		query.Role = ""
	}
	filter := participantStore.ListFilter{Search: query.Search, Role: query.Role, Sort: query.Sort, Desc: query.Desc}
	total, err := deps.Participants.Count(ctx, filter)
	if err != nil {
		return ListParticipantsResult{}, loadFailure(err, "Participants")
	}
	page := listutil.NewPageInfo(query.Params, total)
	filter.Limit, filter.Offset = page.PerPage, page.Offset()
	rows, err := deps.Participants.List(ctx, filter)
	if err != nil {
		return ListParticipantsResult{}, loadFailure(err, "Participants")
	}
	return ListParticipantsResult{Participants: rows, Page: page, Role: query.Role}, nil
}
