// Package mailer sends notification emails.  The MailerSend client is used
// when an API key is configured; otherwise messages are only logged.
package mailer

import (
	"context"
	"log/slog"
)

// Message is a single notification email.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a Message and returns the provider's message id, if any.
type Sender interface {
	Send(ctx context.Context, m Message) (string, error)
}

// New picks the MailerSend sender when apiKey and fromEmail are set and the
// log sender otherwise.
func New(apiKey, fromName, fromEmail string, log *slog.Logger) Sender {
	if apiKey != "" && fromEmail != "" {
		return NewMailerSend(apiKey, fromName, fromEmail)
	}
	return NewLogSender(log)
}

// LogSender writes messages to the logger instead of sending them.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	if log == nil {
		log = slog.Default()
	}
	return &LogSender{log: log}
}

func (l *LogSender) Send(ctx context.Context, m Message) (string, error) {
	l.log.InfoContext(ctx, "email not sent (no provider configured)",
		"to", m.ToEmail, "subject", m.Subject)
	return "", nil
}
