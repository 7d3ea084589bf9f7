package projections

import (
	"context"
	"encoding/json"

	domain "ellarises/internal/domain/outbox"
)

const outboxListLimit = 50

// OutboxReader is the outbox read surface for the admin page.
type OutboxReader interface {
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Entry, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// OutboxRow is an entry with its recipient and subject decoded for display.
type OutboxRow struct {
	domain.Entry
	To      string
	Subject string
}

// OutboxResult is the email outbox admin page.
type OutboxResult struct {
	Counts map[string]int
	Failed []OutboxRow
	Recent []OutboxRow
}

// QueryGetOutbox loads failed and recent emails with counts per status.
func QueryGetOutbox(ctx context.Context, store OutboxReader) (OutboxResult, error) {
	counts, err := store.CountByStatus(ctx)
	if err != nil {
		return OutboxResult{}, loadFailure(err, "Emails")
	}
	failed, err := store.ListFailed(ctx, outboxListLimit)
	if err != nil {
		return OutboxResult{}, loadFailure(err, "Emails")
	}
	recent, err := store.ListRecent(ctx, outboxListLimit)
	if err != nil {
		return OutboxResult{}, loadFailure(err, "Emails")
	}
	return OutboxResult{Counts: counts, Failed: outboxRows(failed), Recent: outboxRows(recent)}, nil
}

func outboxRows(entries []domain.Entry) []OutboxRow {
	rows := make([]OutboxRow, 0, len(entries))
	for _, e := range entries {
		row := OutboxRow{Entry: e}
		// Undecodable payloads still list; their recipient is just blank.
		var msg struct {
			To      string `json:"to"`
			Subject string `json:"subject"`
		}
		if json.Unmarshal([]byte(e.Payload), &msg) == nil {
			row.To, row.Subject = msg.To, msg.Subject
		}
		rows = append(rows, row)
	}
	return rows
}
