package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Email represents an email message to be sent.
type Email struct {
	To          []string          // Recipient email addresses
	From        string            // Sender address, "Name <addr>" allowed
	Subject     string            // Email subject
	TextBody    string            // Plain text body
	HTMLBody    string            // HTML body (optional)
	Attachments []Attachment      // File attachments (optional)
	Headers     map[string]string // Custom headers (optional)
}

// Attachment represents a file attachment for an email.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Sender delivers composed messages.
type Sender interface {
	// Send returns the provider's message ID when one is available.
	Send(ctx context.Context, email *Email) (string, error)
}

// LogSender logs messages instead of delivering them. Used when no SMTP host
// is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "email", "sender", "log")}
}

func (s *LogSender) Send(ctx context.Context, email *Email) (string, error) {
	if len(email.To) == 0 {
		return "", ErrNoRecipient
	}
	s.logger.Info("email not delivered (no SMTP configured)",
		"to", email.To,
		"subject", email.Subject,
	)
	return fmt.Sprintf("log-%d", time.Now().UnixNano()), nil
}
