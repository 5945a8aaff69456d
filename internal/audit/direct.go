package audit

import (
	"context"
	"time"

	"closer_scheduling_backend/platform/logger"
)

// Writer stores audit entries.
type Writer interface {
	Insert(ctx context.Context, entry Entry) error
}

// DirectDispatcher writes audit entries in-process and only logs
// notifications. It serves deployments without a task queue.
type DirectDispatcher struct {
	writer Writer
	log    *logger.Logger
}

// NewDirectDispatcher creates a dispatcher writing straight to writer.
func NewDirectDispatcher(writer Writer, log *logger.Logger) *DirectDispatcher {
	return &DirectDispatcher{writer: writer, log: log}
}

func (d *DirectDispatcher) DeliverAudit(ctx context.Context, entry Entry) error {
	return d.writer.Insert(ctx, entry)
}

func (d *DirectDispatcher) RequestNotification(_ context.Context, n Notification) error {
	d.log.Info("booking notification requested",
		"kind", n.Kind,
		"booking_id", n.BookingID.String(),
		"scheduled_at", n.ScheduledAt,
	)
	return nil
}

func (d *DirectDispatcher) ScheduleReminder(_ context.Context, n Notification, runAt time.Time) error {
	d.log.Debug("reminder skipped without task queue", "booking_id", n.BookingID.String(), "run_at", runAt)
	return nil
}

var _ Dispatcher = (*DirectDispatcher)(nil)
