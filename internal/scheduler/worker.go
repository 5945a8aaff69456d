package scheduler

import (
	"context"
	"fmt"

	"closer_scheduling_backend/internal/audit"
	"closer_scheduling_backend/internal/events"
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/platform/apperr"
	"closer_scheduling_backend/platform/config"
	"closer_scheduling_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// BookingReader loads the current state of a booking.
type BookingReader interface {
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	audits   audit.Writer
	bookings BookingReader
	bus      events.Bus
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, audits audit.Writer, bookings BookingReader, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := newWorker(audits, bookings, bus, log)
	w.server = server
	return w, nil
}

func newWorker(audits audit.Writer, bookings BookingReader, bus events.Bus, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:      mux,
		audits:   audits,
		bookings: bookings,
		bus:      bus,
		log:      log,
	}

	mux.HandleFunc(TaskAuditDeliver, w.handleAuditDeliver)
	mux.HandleFunc(TaskNotificationRequested, w.handleNotificationRequested)
	mux.HandleFunc(TaskBookingReminder, w.handleBookingReminder)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleAuditDeliver(ctx context.Context, task *asynq.Task) error {
	entry, err := ParseAuditDeliverPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return w.audits.Insert(ctx, entry)
}

// handleNotificationRequested hands the request to whatever messaging
// integration is subscribed on the worker's bus.
func (w *Worker) handleNotificationRequested(ctx context.Context, task *asynq.Task) error {
	n, err := ParseNotificationRequestedPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return w.handOff(ctx, n)
}

func (w *Worker) handleBookingReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseBookingReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	booking, err := w.bookings.GetBooking(ctx, payload.Notification.BookingID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if !booking.Status.OccupiesCapacity() || !booking.ScheduledAt.Equal(payload.ScheduledAt) {
		w.log.Debug("reminder skipped", "booking_id", booking.ID.String(), "status", string(booking.Status))
		return nil
	}

	return w.handOff(ctx, payload.Notification)
}

func (w *Worker) handOff(ctx context.Context, n audit.Notification) error {
	w.log.Info("booking notification handed off",
		"kind", n.Kind,
		"booking_id", n.BookingID.String(),
		"scheduled_at", n.ScheduledAt,
	)
	if w.bus == nil {
		return nil
	}
	return w.bus.PublishSync(ctx, n.Event())
}
