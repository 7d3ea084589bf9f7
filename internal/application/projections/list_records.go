package projections

import (
	"context"

	donationStore "ellarises/internal/adapters/storage/donation"
	milestoneStore "ellarises/internal/adapters/storage/milestone"
	"ellarises/internal/application/listutil"
)

// ListMilestonesResult is one page of milestones across participants.
type ListMilestonesResult struct {
	Milestones []milestoneStore.Owned
	Page       listutil.PageInfo
}

// ListMilestonesDeps holds dependencies for QueryListMilestones.
type ListMilestonesDeps struct {
	Milestones MilestoneStore
}

// QueryListMilestones returns one page of milestones, newest first, with their owners.
func QueryListMilestones(ctx context.Context, params listutil.Params, deps ListMilestonesDeps) (ListMilestonesResult, error) {
	filter := milestoneStore.ListFilter{Search: params.Search}
	total, err := deps.Milestones.Count(ctx, filter)
	if err != nil {
		return ListMilestonesResult{}, loadFailure(err, "Milestones")
	}
	page := listutil.NewPageInfo(params, total)
	filter.Limit, filter.Offset = page.PerPage, page.Offset()
	rows, err := deps.Milestones.List(ctx, filter)
	if err != nil {
		return ListMilestonesResult{}, loadFailure(err, "Milestones")
	}
	return ListMilestonesResult{Milestones: rows, Page: page}, nil
}

// ListDonationsResult is one page of donations plus the sum of every match.
type ListDonationsResult struct {
	Donations  []donationStore.Owned
	Page       listutil.PageInfo
	TotalCents int64
}

// ListDonationsDeps holds dependencies for QueryListDonations.
type ListDonationsDeps struct {
	Donations DonationStore
}

// QueryListDonations returns one page of donations with their donors.
// POST: TotalCents sums every matching donation, not just the page
func QueryListDonations(ctx context.Context, params listutil.Params, deps ListDonationsDeps) (ListDonationsResult, error) {
	filter := donationStore.ListFilter{Search: params.Search}
	total, err := deps.Donations.Count(ctx, filter)
	if err != nil {
		return ListDonationsResult{}, loadFailure(err, "Donations")
	}
	sum, err := deps.Donations.Sum(ctx, filter)
	if err != nil {
		return ListDonationsResult{}, loadFailure(err, "Donations")
	}
	page := listutil.NewPageInfo(params, total)
	filter.Limit, filter.Offset = page.PerPage, page.Offset()
	rows, err := deps.Donations.List(ctx, filter)
	if err != nil {
		return ListDonationsResult{}, loadFailure(err, "Donations")
	}
	return ListDonationsResult{Donations: rows, Page: page, TotalCents: sum}, nil
}
