package projections

import (
	"context"
	"time"

	eventStore "ellarises/internal/adapters/storage/event"
	"ellarises/internal/application/listutil"
	"ellarises/internal/domain/event"
)

// OccurrenceRow is an occurrence as listed on the events page.
type OccurrenceRow struct {
	eventStore.OccurrenceView
	SeatsLeft int  // -1 when unlimited
	Open      bool // registration still accepted
}

func occurrenceRow(v eventStore.OccurrenceView, now time.Time) OccurrenceRow {
	return OccurrenceRow{
		OccurrenceView: v,
		SeatsLeft:      v.SeatsLeft(),
		Open:           v.RegistrationOpen(now) && v.SeatsLeft() != 0,
	}
}

// ListEventsQuery carries the events page parameters.
type ListEventsQuery struct {
	listutil.Params
	IncludePast bool
	Now         time.Time
}

// ListEventsResult is one page of occurrences plus the templates they are made from.
type ListEventsResult struct {
	Occurrences []OccurrenceRow
	Templates   []event.Template
	Page        listutil.PageInfo
	IncludePast bool
}

// ListEventsDeps holds dependencies for QueryListEvents.
type ListEventsDeps struct {
	Events EventStore
}

// QueryListEvents lists scheduled occurrences in start order.
// PRE: query.Now is set
// POST: Past occurrences are omitted unless IncludePast
func QueryListEvents(ctx context.Context, query ListEventsQuery, deps ListEventsDeps) (ListEventsResult, error) {
	filter := eventStore.ListFilter{Search: query.Search}
	if !query.IncludePast {
		filter.From = query.Now
	}
	total, err := deps.Events.CountOccurrences(ctx, filter)
	if err != nil {
		return ListEventsResult{}, loadFailure(err, "Events")
	}
	page := listutil.NewPageInfo(query.Params, total)
	filter.Limit, filter.Offset = page.PerPage, page.Offset()
	views, err := deps.Events.ListOccurrences(ctx, filter)
	if err != nil {
		return ListEventsResult{}, loadFailure(err, "Events")
	}
	templates, err := deps.Events.ListTemplates(ctx)
	if err != nil {
		return ListEventsResult{}, loadFailure(err, "Events")
	}

	rows := make([]OccurrenceRow, 0, len(views))
	for _, v := range views {
		rows = append(rows, occurrenceRow(v, query.Now))
	}
	return ListEventsResult{Occurrences: rows, Templates: templates, Page: page, IncludePast: query.IncludePast}, nil
}

// QueryGetOccurrence loads one occurrence for the register page and its QR code.
// POST: A missing occurrence is NotFound
func QueryGetOccurrence(ctx context.Context, id int64, now time.Time, deps ListEventsDeps) (OccurrenceRow, error) {
	v, err := deps.Events.GetOccurrenceView(ctx, id)
	if err != nil {
		return OccurrenceRow{}, loadFailure(err, "Event")
	}
	return occurrenceRow(v, now), nil
}

// QueryListLocations returns every venue by name.
func QueryListLocations(ctx context.Context, deps ListEventsDeps) ([]event.Location, error) {
	locations, err := deps.Events.ListLocations(ctx)
	if err != nil {
		return nil, loadFailure(err, "Locations")
	}
	return locations, nil
}

// EventFormOptions are the choices offered by the occurrence form.
type EventFormOptions struct {
	Templates []event.Template
	Locations []event.Location
}

// QueryEventFormOptions loads the template and location choices for the occurrence form.
func QueryEventFormOptions(ctx context.Context, deps ListEventsDeps) (EventFormOptions, error) {
	templates, err := deps.Events.ListTemplates(ctx)
	if err != nil {
		return EventFormOptions{}, loadFailure(err, "Events")
	}
	locations, err := deps.Events.ListLocations(ctx)
	if err != nil {
		return EventFormOptions{}, loadFailure(err, "Locations")
	}
	return EventFormOptions{Templates: templates, Locations: locations}, nil
}
