package orchestrators

import (
	"context"
	"fmt"
	"log/slog"

	"ellarises/internal/adapters/storage"
	registrationStore "ellarises/internal/adapters/storage/registration"
	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/event"
)

// EventStore defines the store interface needed by the event orchestrators.
type EventStore interface {
	CreateTemplate(ctx context.Context, t event.Template) (int64, error)
	UpdateTemplate(ctx context.Context, t event.Template) error
	DeleteTemplate(ctx context.Context, id int64) error
	CountOccurrencesOfTemplate(ctx context.Context, id int64) (int, error)

	CreateLocation(ctx context.Context, l event.Location) (int64, error)
	UpdateLocation(ctx context.Context, l event.Location) error
	DeleteLocation(ctx context.Context, id int64) error
	CountOccurrencesAtLocation(ctx context.Context, id int64) (int, error)

	CreateOccurrence(ctx context.Context, o event.Occurrence) (int64, error)
	UpdateOccurrence(ctx context.Context, o event.Occurrence) error
	DeleteOccurrence(ctx context.Context, id int64) error
}

// RegistrationCounter counts registrations matching a filter.
type RegistrationCounter interface {
	Count(ctx context.Context, filter registrationStore.ListFilter) (int, error)
}

// EventDeps holds dependencies for the event orchestrators.
type EventDeps struct {
	Events        EventStore
	Registrations RegistrationCounter // occurrence deletes only
}

// TemplateInput carries the event template form.
type TemplateInput struct {
	Name            string `validate:"required"`
	Type            string `validate:"required,oneof=workshop summit mentoring recital"`
	Description     string
	Recurrence      string `validate:"omitempty,oneof=none weekly monthly annual"`
	DefaultCapacity string `validate:"omitempty,number"`
}

// LocationInput carries the location form.
type LocationInput struct {
	Name     string `validate:"required"`
	Capacity string `validate:"omitempty,number"`
}

// OccurrenceInput carries the occurrence form. Times use event.TimeLayout.
type OccurrenceInput struct {
	Template             string `validate:"required"`
	Location             string `validate:"required"`
	StartsAt             string `validate:"required"`
	EndsAt               string
	RegistrationDeadline string
}

var ErrLocationNameInUse = apperr.Validation("A location with that name already exists")

func (in TemplateInput) toTemplate() (event.Template, error) {
	capacity, err := parseOptionalInt(in.DefaultCapacity, "Default capacity")
	if err != nil {
		return event.Template{}, err
	}
	recurrence := in.Recurrence
	if recurrence == "" {
		recurrence = event.RecurrenceNone
	}
	t := event.Template{
		Name:            in.Name,
		Type:            in.Type,
		Description:     in.Description,
		Recurrence:      recurrence,
		DefaultCapacity: capacity,
	}
	if err := t.Validate(); err != nil {
		return event.Template{}, invalid(err)
	}
	return t, nil
}

// ExecuteCreateTemplate adds an event template.
// POST: Returns the new template id
func ExecuteCreateTemplate(ctx context.Context, input TemplateInput, deps EventDeps) (int64, error) {
	if err := checkInput(input); err != nil {
		return 0, err
	}
	t, err := input.toTemplate()
	if err != nil {
		return 0, err
	}
	id, err := deps.Events.CreateTemplate(ctx, t)
	if err != nil {
		return 0, apperr.Store("Unable to add event", err)
	}
	slog.Info("event_event", "event", "template_created", "template_id", id)
	return id, nil
}

// ExecuteUpdateTemplate edits an event template.
func ExecuteUpdateTemplate(ctx context.Context, id int64, input TemplateInput, deps EventDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	t, err := input.toTemplate()
	if err != nil {
		return err
	}
	t.ID = id
	if err := deps.Events.UpdateTemplate(ctx, t); err != nil {
		return storeFailure(err, "Event", "update event")
	}
	return nil
}

// ExecuteDeleteTemplate removes a template that has no occurrences.
// POST: Row removed, or a validation error when occurrences still use it
func ExecuteDeleteTemplate(ctx context.Context, id int64, deps EventDeps) error {
	n, err := deps.Events.CountOccurrencesOfTemplate(ctx, id)
	if err != nil {
		return apperr.Store("Unable to delete event", err)
	}
	if n > 0 {
		return apperr.Validation(fmt.Sprintf("Cannot delete an event with %s scheduled", plural(n, "occurrence")))
	}
	if err := deps.Events.DeleteTemplate(ctx, id); err != nil {
		return storeFailure(err, "Event", "delete event")
	}
	slog.Info("event_event", "event", "template_deleted", "template_id", id)
	return nil
}

func (in LocationInput) toLocation() (event.Location, error) {
	capacity, err := parseOptionalInt(in.Capacity, "Capacity")
	if err != nil {
		return event.Location{}, err
	}
	l := event.Location{Name: in.Name, Capacity: capacity}
	if err := l.Validate(); err != nil {
		return event.Location{}, invalid(err)
	}
	return l, nil
}

// ExecuteCreateLocation adds a venue.
// INVARIANT: Location names are unique
func ExecuteCreateLocation(ctx context.Context, input LocationInput, deps EventDeps) (int64, error) {
	if err := checkInput(input); err != nil {
		return 0, err
	}
	l, err := input.toLocation()
	if err != nil {
		return 0, err
	}
	id, err := deps.Events.CreateLocation(ctx, l)
	if storage.IsUniqueViolation(err) {
		return 0, ErrLocationNameInUse
	}
	if err != nil {
		return 0, apperr.Store("Unable to add location", err)
	}
	slog.Info("event_event", "event", "location_created", "location_id", id)
	return id, nil
}

// ExecuteUpdateLocation edits a venue.
func ExecuteUpdateLocation(ctx context.Context, id int64, input LocationInput, deps EventDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	l, err := input.toLocation()
	if err != nil {
		return err
	}
	l.ID = id
	err = deps.Events.UpdateLocation(ctx, l)
	if storage.IsUniqueViolation(err) {
		return ErrLocationNameInUse
	}
	if err != nil {
		return storeFailure(err, "Location", "update location")
	}
	return nil
}

// ExecuteDeleteLocation removes a venue that hosts no occurrences.
func ExecuteDeleteLocation(ctx context.Context, id int64, deps EventDeps) error {
	n, err := deps.Events.CountOccurrencesAtLocation(ctx, id)
	if err != nil {
		return apperr.Store("Unable to delete location", err)
	}
	if n > 0 {
		return apperr.Validation(fmt.Sprintf("Cannot delete a location with %s scheduled", plural(n, "occurrence")))
	}
	if err := deps.Events.DeleteLocation(ctx, id); err != nil {
		return storeFailure(err, "Location", "delete location")
	}
	slog.Info("event_event", "event", "location_deleted", "location_id", id)
	return nil
}

func (in OccurrenceInput) toOccurrence() (event.Occurrence, error) {
	templateID, err := parseRef(in.Template, "event")
	if err != nil {
		return event.Occurrence{}, err
	}
	locationID, err := parseRef(in.Location, "location")
	if err != nil {
		return event.Occurrence{}, err
	}
	o := event.Occurrence{TemplateID: templateID, LocationID: locationID}
	if o.StartsAt, err = parseDateTime(in.StartsAt, event.TimeLayout, "Start"); err != nil {
		return event.Occurrence{}, err
	}
	if o.EndsAt, err = parseDateTime(in.EndsAt, event.TimeLayout, "End"); err != nil {
		return event.Occurrence{}, err
	}
	if o.RegistrationDeadline, err = parseDateTime(in.RegistrationDeadline, event.TimeLayout, "Registration deadline"); err != nil {
		return event.Occurrence{}, err
	}
	if err := o.Validate(); err != nil {
		return event.Occurrence{}, invalid(err)
	}
	return o, nil
}

// ExecuteCreateOccurrence schedules a template at a location.
// POST: Returns the new occurrence id; an unknown template or location is NotFound
func ExecuteCreateOccurrence(ctx context.Context, input OccurrenceInput, deps EventDeps) (int64, error) {
	if err := checkInput(input); err != nil {
		return 0, err
	}
	o, err := input.toOccurrence()
	if err != nil {
		return 0, err
	}
	id, err := deps.Events.CreateOccurrence(ctx, o)
	if err != nil {
		return 0, storeFailure(err, "Event or location", "schedule event")
	}
	slog.Info("event_event", "event", "occurrence_created", "occurrence_id", id, "template_id", o.TemplateID)
	return id, nil
}

// ExecuteUpdateOccurrence reschedules an occurrence.
func ExecuteUpdateOccurrence(ctx context.Context, id int64, input OccurrenceInput, deps EventDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	o, err := input.toOccurrence()
	if err != nil {
		return err
	}
	o.ID = id
	if err := deps.Events.UpdateOccurrence(ctx, o); err != nil {
		return storeFailure(err, "Occurrence", "update occurrence")
	}
	return nil
}

// ExecuteDeleteOccurrence removes an occurrence nobody registered for.
// POST: Row removed, or a validation error when registrations exist
func ExecuteDeleteOccurrence(ctx context.Context, id int64, deps EventDeps) error {
	n, err := deps.Registrations.Count(ctx, registrationStore.ListFilter{OccurrenceID: id})
	if err != nil {
		return apperr.Store("Unable to delete occurrence", err)
	}
	if n > 0 {
		return apperr.Validation(fmt.Sprintf("Cannot delete an occurrence with %s", plural(n, "registration")))
	}
	if err := deps.Events.DeleteOccurrence(ctx, id); err != nil {
		return storeFailure(err, "Occurrence", "delete occurrence")
	}
	slog.Info("event_event", "event", "occurrence_deleted", "occurrence_id", id)
	return nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
