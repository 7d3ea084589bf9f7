package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ellarises/internal/adapters/storage"
	"ellarises/internal/application/apperr"
	"ellarises/internal/domain/donation"
	"ellarises/internal/domain/participant"
	"ellarises/internal/domain/user"
)

// DonationStore defines the store interface needed by the donation orchestrators.
type DonationStore interface {
	Add(ctx context.Context, d donation.Donation) (donation.Donation, error)
	Get(ctx context.Context, participantID int64, number int) (donation.Donation, error)
	Update(ctx context.Context, d donation.Donation) error
	Delete(ctx context.Context, participantID int64, number int) error
}

// DonorStore finds or creates the participant behind a public donation.
type DonorStore interface {
	GetByEmail(ctx context.Context, email string) (participant.Participant, error)
	Create(ctx context.Context, p participant.Participant) (int64, error)
}

// DonationDeps holds dependencies for the donation orchestrators.
type DonationDeps struct {
	Donations    DonationStore
	Participants DonorStore // public donations only
	Notifier     Notifier   // optional
	Now          func() time.Time
}

// DonationInput carries the manager donation form.
type DonationInput struct {
	Participant string `validate:"required"`
	Amount      string `validate:"required"`
	Date        string `validate:"required"`
}

// DonateInput carries the public donation form.
type DonateInput struct {
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`
	Email     string `validate:"required,email"`
	Amount    string `validate:"required"`
}

// DonateResult identifies the recorded public donation.
type DonateResult struct {
	ParticipantID int64
	Number        int
	AmountCents   int64
}

// ExecuteAddDonation records a donation numbered after the participant's
// highest one; the participant's total is refreshed in the same transaction.
// POST: Returns the stored donation; unknown participant is NotFound
func ExecuteAddDonation(ctx context.Context, input DonationInput, deps DonationDeps) (donation.Donation, error) {
	if err := checkInput(input); err != nil {
		return donation.Donation{}, err
	}
	pid, err := parseRef(input.Participant, "participant")
	if err != nil {
		return donation.Donation{}, err
	}
	d, err := buildDonation(pid, input.Amount, input.Date)
	if err != nil {
		return donation.Donation{}, err
	}

	d, err = deps.Donations.Add(ctx, d)
	if err != nil {
		return donation.Donation{}, storeFailure(err, "Participant", "add donation")
	}
	slog.Info("donation_event", "event", "donation_added", "participant_id", d.ParticipantID, "number", d.Number, "amount_cents", d.AmountCents)
	return d, nil
}

// ExecuteUpdateDonation edits amount and date.
// POST: Row and participant total updated together, or NotFound
func ExecuteUpdateDonation(ctx context.Context, participantID int64, number int, input DonationInput, deps DonationDeps) error {
	if err := checkInput(input); err != nil {
		return err
	}
	if _, err := deps.Donations.Get(ctx, participantID, number); err != nil {
		return storeFailure(err, "Donation", "load donation")
	}
	d, err := buildDonation(participantID, input.Amount, input.Date)
	if err != nil {
		return err
	}
	d.Number = number
	if err := deps.Donations.Update(ctx, d); err != nil {
		return storeFailure(err, "Donation", "update donation")
	}
	return nil
}

// ExecuteDeleteDonation removes one donation.
// POST: Row removed and participant total updated together
func ExecuteDeleteDonation(ctx context.Context, participantID int64, number int, deps DonationDeps) error {
	if err := deps.Donations.Delete(ctx, participantID, number); err != nil {
		return storeFailure(err, "Donation", "delete donation")
	}
	slog.Info("donation_event", "event", "donation_deleted", "participant_id", participantID, "number", number)
	return nil
}

// ExecuteDonate records a donation from the public form. The donor is matched
// to a participant by email, and a donor participant is created when none exists.
// PRE: none
// POST: Donation recorded for today; a receipt email is queued
func ExecuteDonate(ctx context.Context, input DonateInput, deps DonationDeps) (DonateResult, error) {
	if err := checkInput(input); err != nil {
		return DonateResult{}, err
	}
	cents, err := donation.ParseAmount(input.Amount)
	if err != nil {
		return DonateResult{}, invalid(err)
	}
	now := deps.Now()

	donor, err := findOrCreateDonor(ctx, input, deps.Participants, now)
	if err != nil {
		return DonateResult{}, err
	}
	d := donation.Donation{ParticipantID: donor.ID, AmountCents: cents, DonatedOn: dayOf(now)}
	if err := d.Validate(); err != nil {
		return DonateResult{}, invalid(err)
	}

	d, err = deps.Donations.Add(ctx, d)
	if err != nil {
		return DonateResult{}, storeFailure(err, "Participant", "record your donation")
	}
	slog.Info("donation_event", "event", "public_donation", "participant_id", d.ParticipantID, "number", d.Number, "amount_cents", d.AmountCents)

	notify(ctx, deps.Notifier, EmailPayload{
		To:      donor.Email,
		Subject: "Thank you for your donation",
		Body: fmt.Sprintf("Hi %s,\n\nThank you for your gift of **$%s** on %s. "+
			"Your support keeps our programs running.\n\nWith gratitude,\n\nElla Rises",
			donor.FirstName, donation.FormatAmount(d.AmountCents), d.DonatedOn.Format("January 2, 2006")),
	})
	return DonateResult{ParticipantID: d.ParticipantID, Number: d.Number, AmountCents: d.AmountCents}, nil
}

func buildDonation(participantID int64, amount, date string) (donation.Donation, error) {
	cents, err := donation.ParseAmount(amount)
	if err != nil {
		return donation.Donation{}, invalid(err)
	}
	day, err := parseDate(date, "Date")
	if err != nil {
		return donation.Donation{}, err
	}
	d := donation.Donation{ParticipantID: participantID, AmountCents: cents, DonatedOn: day}
	if err := d.Validate(); err != nil {
		return donation.Donation{}, invalid(err)
	}
	return d, nil
}

// dayOf truncates t to its calendar date in UTC, the way form dates are stored.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func findOrCreateDonor(ctx context.Context, input DonateInput, participants DonorStore, now time.Time) (participant.Participant, error) {
	email := user.NormalizeEmail(input.Email)
	p, err := participants.GetByEmail(ctx, email)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return participant.Participant{}, apperr.Store("Unable to record your donation", err)
	}

	p = participant.Participant{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     email,
		Role:      participant.RoleDonor,
		CreatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return participant.Participant{}, invalid(err)
	}
	id, err := participants.Create(ctx, p)
	if storage.IsUniqueViolation(err) {
		// Another request created the donor first.
		p, err = participants.GetByEmail(ctx, email)
		if err != nil {
			return participant.Participant{}, apperr.Store("Unable to record your donation", err)
		}
		return p, nil
	}
	if err != nil {
		return participant.Participant{}, apperr.Store("Unable to record your donation", err)
	}
	p.ID = id
	slog.Info("participant_event", "event", "participant_created", "participant_id", id, "via", "donate")
	return p, nil
}
