// Package email delivers transactional mail through an external provider.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"time"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// SendRequest contains the data needed to send one email.
type SendRequest struct {
	To      string
	Subject string
	HTML    string
	Text    string // plain-text alternative; the Markdown source works well here
	ReplyTo string
}

// SendResult contains the response from the email provider.
type SendResult struct {
	MessageID string // provider message id, stored as the outbox external id
	SentAt    time.Time
}

// Sender sends a single email.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (SendResult, error)
}

// Raw HTML in the Markdown source is escaped because WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

// RenderMarkdown converts a Markdown body into a minimal HTML document.
// POST: Returns HTML safe to hand to a mail client
func RenderMarkdown(subject, body string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
	buf.WriteString(html.EscapeString(subject))
	buf.WriteString(`</title></head><body style="font-family:Helvetica,Arial,sans-serif;line-height:1.5;color:#2b2b2b">`)
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("render email body: %w", err)
	}
	buf.WriteString(`</body></html>`)
	return buf.String(), nil
}
