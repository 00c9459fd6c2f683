package reservation

import (
	"context"

	"adspot/models"

	"go.uber.org/zap"
)

// Notifier receives status-change events for delivery to the parties.
// Delivery itself (push, email) lives outside this service; implementations
// must be non-blocking from the caller's point of view and must never fail a
// transition.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, change models.StatusChange)
}

// LogNotifier writes status changes to the log. It stands in wherever no
// delivery channel is wired.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n *LogNotifier) NotifyStatusChange(ctx context.Context, change models.StatusChange) {
	n.Logger.Info("reservation status changed",
		zap.String("reservationId", change.ReservationID),
		zap.String("screenId", change.ScreenID),
		zap.String("from", string(change.From)),
		zap.String("to", string(change.To)),
	)
}
