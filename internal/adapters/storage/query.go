package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Per-participant counter columns handed to ClaimNumber.
const (
	MilestoneCounter = "next_milestone_number"
	DonationCounter  = "next_donation_number"
)

// ClaimNumber takes the next record number from a participant's counter and
// advances it. The UPDATE holds the participant row until q's transaction
// ends, so concurrent claims for one participant queue up.
// PRE: counter is MilestoneCounter or DonationCounter; q is inside a transaction
// POST: Returns a number never handed out before for this participant, or an
// error wrapping ErrNotFound when the participant does not exist
// INVARIANT: deleting records never lowers the counter, so numbers are not reused
func ClaimNumber(ctx context.Context, q Querier, counter string, participantID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"UPDATE participant_info SET "+counter+" = "+counter+" + 1 WHERE participant_id = ? RETURNING "+counter+" - 1",
		participantID,
	).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("participant %d: %w", participantID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("claim %s: %w", counter, err)
	}
	return n, nil
}

// Pattern wraps a search term for a case-insensitive LIKE.
func Pattern(search string) string {
	return "%" + escapeLike(strings.ToLower(strings.TrimSpace(search))) + "%"
}

// escapeLike backslash-escapes LIKE wildcards in user input. Every LIKE that
// takes a Pattern must carry ESCAPE '\'.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}
