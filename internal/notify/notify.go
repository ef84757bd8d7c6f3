// Package notify delivers user-facing messages about order status changes.
// Delivery is best effort: the order services log failures and never let
// them touch a committed transaction.
package notify

import (
	"context"
	"log/slog"
)

type Notifier interface {
	Notify(ctx context.Context, userID int64, message string) error
}

// LogNotifier writes notifications to the log. It stands in wherever no
// chat transport is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID int64, message string) error {
	slog.Info("user notification", "user_id", userID, "message", message)

	return nil
}
