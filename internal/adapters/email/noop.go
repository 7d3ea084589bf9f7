package email

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NoopSender logs and records emails without delivering them. It is used in
// development when no provider key is configured, and in tests.
type NoopSender struct {
	mu   sync.Mutex
	sent []SendRequest
}

// NewNoopSender creates a new NoopSender.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// Send records req.
func (s *NoopSender) Send(_ context.Context, req SendRequest) (SendResult, error) {
	s.mu.Lock()
	s.sent = append(s.sent, req)
	s.mu.Unlock()
	slog.Info("noop_email_send", "subject", req.Subject)
	return SendResult{MessageID: "noop-" + uuid.NewString(), SentAt: time.Now()}, nil
}

// Sent returns a copy of every request recorded so far.
func (s *NoopSender) Sent() []SendRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendRequest(nil), s.sent...)
}
