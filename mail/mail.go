// Package mail delivers the password-reset email. Senders compose: the
// service talks to a ResetNotifier, which renders the message and hands it
// to a Sender (SMTP, log, the async Dispatcher or the RabbitMQ Queue).
package mail

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// Errors returned by senders.
var (
	ErrQueueFull   = errors.New("mail: dispatch queue is full")
	ErrClosed      = errors.New("mail: sender is closed")
	ErrNoRecipient = errors.New("mail: message has no recipient")
)

// Message is a rendered email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg *Message) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// LogSender writes messages to the log instead of delivering them. Only the
// recipient and subject are logged since the body carries a live token.
type LogSender struct {
	Logger logrus.FieldLogger
}

// Send logs msg.
func (s *LogSender) Send(_ context.Context, msg *Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	logger := s.Logger
	if logger == nil {
		logger = discard()
	}
	logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email not delivered: no mail transport configured")
	return nil
}

func discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
