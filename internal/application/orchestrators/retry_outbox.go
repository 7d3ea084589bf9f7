package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ellarises/internal/adapters/email"
	outboxStore "ellarises/internal/adapters/storage/outbox"
	"ellarises/internal/application/apperr"
	domain "ellarises/internal/domain/outbox"
)

// OutboxStore defines the store interface needed by the outbox processor.
type OutboxStore interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
}

// ActionExecutor executes one type of queued action.
type ActionExecutor interface {
	// Execute runs the action with the given payload and returns the
	// provider's id for it.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor delivers queued outbox entries with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStore
	executors map[string]ActionExecutor
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store OutboxStore, executors map[string]ActionExecutor, now func() time.Time) *OutboxProcessor {
	if now == nil {
		now = time.Now
	}
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       now,
		baseDelay: 30 * time.Second,
		maxDelay:  1 * time.Hour,
		batchSize: 10,
	}
}

// ProcessPending attempts every due entry in the next batch.
// PRE: Context is valid
// POST: Attempted entries are saved as done, retrying or failed
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}
	for _, entry := range entries {
		if !entry.Due(p.now(), p.baseDelay, p.maxDelay) {
			continue
		}
		if err := p.attempt(ctx, &entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
	}
	return nil
}

// attempt runs entry once and saves the outcome. Only a failed save is returned.
func (p *OutboxProcessor) attempt(ctx context.Context, entry *domain.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.Attempts = entry.MaxAttempts
		entry.MarkFailed(fmt.Errorf("no executor registered for action type %q", entry.ActionType))
		return p.store.Save(ctx, *entry)
	}

	entry.MarkAttempt(p.now())
	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "status", entry.Status, "error", err.Error())
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return p.store.Save(ctx, *entry)
}

// ProcessSingle retries one entry now, ignoring its backoff. A failed entry
// gets one extra attempt.
// PRE: entryID is non-empty
// POST: Entry attempted and saved; done and abandoned entries are refused
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return storeFailure(err, "Email", "load email")
	}
	if entry.Status == domain.StatusDone || entry.Status == domain.StatusAbandoned {
		return apperr.Validation("This email is " + entry.Status + " and cannot be retried")
	}
	if entry.Attempts >= entry.MaxAttempts {
		entry.MaxAttempts = entry.Attempts + 1
	}
	if err := p.attempt(ctx, &entry); err != nil {
		return apperr.Store("Unable to save email", err)
	}
	slog.Info("outbox_manual_retry", "entry_id", entry.ID, "status", entry.Status)
	return nil
}

// AbandonEntry stops further delivery attempts.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return storeFailure(err, "Email", "load email")
	}
	if entry.Status == domain.StatusDone {
		return apperr.Validation("This email was already sent")
	}
	entry.MarkAbandoned()
	if err := p.store.Save(ctx, entry); err != nil {
		return apperr.Store("Unable to save email", err)
	}
	slog.Info("outbox_abandoned", "entry_id", entry.ID)
	return nil
}

// --- Email Executor ---

// EmailExecutor sends queued EmailPayload entries through an email.Sender.
type EmailExecutor struct {
	Sender  email.Sender
	ReplyTo string
}

var errBadPayload = errors.New("email payload has no recipient")

// Execute sends an email from the payload.
// PRE: payload is JSON encoding an EmailPayload
// POST: Email accepted by the provider; returns its message id
// INVARIANT: outbox entry status managed by caller
func (e *EmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var msg EmailPayload
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	if msg.To == "" {
		return "", errBadPayload
	}
	html, err := email.RenderMarkdown(msg.Subject, msg.Body)
	if err != nil {
		return "", err
	}
	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    html,
		Text:    msg.Body,
		ReplyTo: e.ReplyTo,
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// --- Background Worker ---

// StartBackgroundWorker processes pending entries every interval until ctx is done.
// POST: The returned channel is closed once the worker has stopped
func StartBackgroundWorker(ctx context.Context, processor *OutboxProcessor, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, time.Minute)
				if err := processor.ProcessPending(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Error("outbox_background_process_failed", "error", err.Error())
				}
				cancel()
			case <-ctx.Done():
				slog.Info("outbox_background_worker_stopped")
				return
			}
		}
	}()
	return done
}

var _ OutboxStore = (*outboxStore.SQLStore)(nil)
