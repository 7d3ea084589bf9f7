package orchestrators

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ellarises/internal/domain/outbox"
)

// Notifier queues a transactional email. Implementations must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, msg EmailPayload) error
}

// OutboxWriter persists an outbox entry.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// EmailPayload is the JSON stored in an email outbox entry. Body is Markdown.
type EmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// OutboxNotifier records emails in the outbox for the background worker to send.
type OutboxNotifier struct {
	Outbox OutboxWriter
	Now    func() time.Time
}

// Notify queues msg.
// PRE: msg.To is a deliverable address
// POST: A pending email entry exists in the outbox
func (n *OutboxNotifier) Notify(ctx context.Context, msg EmailPayload) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	entry := outbox.NewEntry(uuid.NewString(), outbox.ActionEmail, string(payload), n.Now())
	if err := entry.Validate(); err != nil {
		return err
	}
	return n.Outbox.Save(ctx, entry)
}

// notify queues msg when a notifier is configured. A failure is logged and
// never fails the operation that triggered it.
func notify(ctx context.Context, n Notifier, msg EmailPayload) {
	if n == nil || msg.To == "" {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		slog.Error("outbox_enqueue_failed", "subject", msg.Subject, "error", err.Error())
	}
}
