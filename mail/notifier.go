package mail

import (
	"context"
	"fmt"

	"github.com/instaflow/authcore"
)

// ResetNotifier renders reset emails and hands them to a Sender.
type ResetNotifier struct {
	sender Sender
}

// NewResetNotifier creates a notifier over sender.
func NewResetNotifier(sender Sender) *ResetNotifier {
	return &ResetNotifier{sender: sender}
}

// NotifyPasswordReset implements authcore.Notifier.
func (n *ResetNotifier) NotifyPasswordReset(ctx context.Context, email, resetLink string) error {
	msg, err := ResetPasswordMessage(email, resetLink)
	if err != nil {
		return fmt.Errorf("mail: render reset email: %w", err)
	}
	return n.sender.Send(ctx, msg)
}

var _ authcore.Notifier = (*ResetNotifier)(nil)
