// Package notify delivers opportunity alerts. Notifications fan out to all
// configured senders (Discord, Telegram); delivery is fire and forget, so a
// sender failure is logged and never propagates back to the scan loop.
package notify

import (
	"context"
	"log/slog"
)

// Sender is one notification channel.
type Sender interface {
	// Send delivers a message. Urgent messages should attract operator
	// attention (mention, ping) where the channel supports it.
	Send(ctx context.Context, message string, urgent bool) error
	// Name returns a human-readable identifier for the sender (e.g. "discord").
	Name() string
}

// Notifier dispatches messages to all senders.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders. A Notifier with no
// senders is valid and drops everything.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends the message to every sender. A failing sender does not
// prevent delivery to the remaining senders, and no error is returned.
func (n *Notifier) Notify(ctx context.Context, message string, urgent bool) {
	for _, s := range n.senders {
		if err := s.Send(ctx, message, urgent); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.Bool("urgent", urgent),
		)
	}
}
