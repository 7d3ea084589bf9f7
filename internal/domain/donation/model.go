package donation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the form and storage layout for donation dates.
const DateLayout = "2006-01-02"

// MaxAmountCents rejects obviously mistyped amounts (ten million dollars).
const MaxAmountCents = 1_000_000_000

// Domain errors
var (
	ErrNoParticipant  = errors.New("donation must belong to a participant")
	ErrInvalidAmount  = errors.New("amount must be a positive number with at most two decimals")
	ErrAmountTooLarge = errors.New("amount is too large")
	ErrNoDate         = errors.New("donation date is required")
)

// Donation is a gift owned by one participant, numbered per participant the
// same way milestones are. Amounts are whole cents.
type Donation struct {
	ParticipantID int64
	Number        int
	AmountCents   int64
	DonatedOn     time.Time
}

// Validate checks if the Donation has valid data.
// PRE: Donation struct is populated
// POST: Returns nil if valid, error otherwise
func (d *Donation) Validate() error {
	if d.ParticipantID <= 0 {
		return ErrNoParticipant
	}
	if d.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if d.AmountCents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	if d.DonatedOn.IsZero() {
		return ErrNoDate
	}
	return nil
}

// ParseAmount converts a form value such as "25", "25.5" or "$1,250.00" to cents.
func ParseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || dollars < 0 {
		return 0, ErrInvalidAmount
	}
	var cents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, ErrInvalidAmount
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return 0, ErrInvalidAmount
		}
	}
	if dollars > MaxAmountCents/100 {
		return 0, ErrAmountTooLarge
	}
	total := dollars*100 + cents
	if total <= 0 {
		return 0, ErrInvalidAmount
	}
	return total, nil
}

// FormatAmount renders cents as a plain decimal suitable for a form field.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
