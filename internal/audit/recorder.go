package audit

import (
	"context"
	"time"

	"closer_scheduling_backend/internal/events"
	"closer_scheduling_backend/platform/logger"
)

const (
	sinkAudit        = "audit"
	sinkNotification = "notification"
	sinkReminder     = "reminder"
)

// Dispatcher hands audit entries and notifications to their sinks. The asynq
// client is the production implementation.
type Dispatcher interface {
	DeliverAudit(ctx context.Context, entry Entry) error
	RequestNotification(ctx context.Context, n Notification) error
	ScheduleReminder(ctx context.Context, n Notification, runAt time.Time) error
}

// Recorder subscribes to booking events and forwards them to a Dispatcher.
type Recorder struct {
	dispatcher   Dispatcher
	reminderLead time.Duration
	log          *logger.Logger
	now          func() time.Time
}

// NewRecorder creates a recorder. A reminderLead of zero disables reminders.
func NewRecorder(dispatcher Dispatcher, reminderLead time.Duration, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{
		dispatcher:   dispatcher,
		reminderLead: reminderLead,
		log:          log,
		now:          time.Now,
	}
}

// WithClock replaces the recorder's clock. Used by tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// RegisterHandlers subscribes the recorder to the booking events on bus.
func (r *Recorder) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.BookingTransitioned{}.EventName(), events.HandlerFunc(r.handleTransition))
	bus.Subscribe(events.BookingNotificationRequested{}.EventName(), events.HandlerFunc(r.handleNotification))
}

func (r *Recorder) handleTransition(ctx context.Context, event events.Event) error {
	e, ok := event.(events.BookingTransitioned)
	if !ok {
		return nil
	}
	if err := r.dispatcher.DeliverAudit(ctx, EntryFromTransition(e)); err != nil {
		r.log.WithContext(ctx).EmissionFailed(sinkAudit, e.EventName(), err)
	}
	return nil
}

func (r *Recorder) handleNotification(ctx context.Context, event events.Event) error {
	e, ok := event.(events.BookingNotificationRequested)
	if !ok {
		return nil
	}
	n := NotificationFromEvent(e)
	log := r.log.WithContext(ctx)

	if err := r.dispatcher.RequestNotification(ctx, n); err != nil {
		log.EmissionFailed(sinkNotification, e.EventName(), err)
	}

	runAt, ok := r.reminderAt(n)
	if !ok {
		return nil
	}
	reminder := n
	reminder.Kind = events.NotificationBookingReminder
	if err := r.dispatcher.ScheduleReminder(ctx, reminder, runAt); err != nil {
		log.EmissionFailed(sinkReminder, e.EventName(), err)
	}
	return nil
}

// reminderAt returns when the reminder for n is due. Only new and moved
// bookings far enough ahead get one.
func (r *Recorder) reminderAt(n Notification) (time.Time, bool) {
	if r.reminderLead <= 0 {
		return time.Time{}, false
	}
	if n.Kind != events.NotificationBookingCreated && n.Kind != events.NotificationBookingRescheduled {
		return time.Time{}, false
	}
	runAt := n.ScheduledAt.Add(-r.reminderLead)
	if !runAt.After(r.now()) {
		return time.Time{}, false
	}
	return runAt, true
}
