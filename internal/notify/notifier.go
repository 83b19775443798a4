// Package notify delivers alert messages to subscribers over one or more
// channels. Senders address a subscriber by chat ID; channels without a chat
// concept may ignore it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is the interface each delivery channel must implement.
type Sender interface {
	// Send delivers a message to the subscriber identified by chatID.
	Send(ctx context.Context, chatID, text string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches a message to every registered sender. A single sender
// failure does not prevent delivery to the remaining senders.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to the given senders.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Send delivers text to the subscriber on every sender. Errors from
// individual senders are collected into a combined error.
func (n *Notifier) Send(ctx context.Context, chatID, text string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, chatID, text); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("chat_id", chatID),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "message sent",
			slog.String("sender", s.Name()),
			slog.String("chat_id", chatID),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}
