package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"time"

	"closer_scheduling_backend/internal/audit"
	"closer_scheduling_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const auditMaxRetry = 10

// Client enqueues audit, notification and reminder tasks.
type Client struct {
	client *asynq.Client
	queue  string
}

var _ audit.Dispatcher = (*Client)(nil)

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
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

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// DeliverAudit enqueues entry. The task id is the event id, so a second
// enqueue of the same event is dropped by the queue.
func (c *Client) DeliverAudit(ctx context.Context, entry audit.Entry) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewAuditDeliverTask(entry)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.TaskID("audit:"+entry.ID.String()), asynq.MaxRetry(auditMaxRetry))
}

func (c *Client) RequestNotification(ctx context.Context, n audit.Notification) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewNotificationRequestedTask(n)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task, asynq.TaskID("notify:"+n.EventID.String()))
}

// ScheduleReminder enqueues a reminder due at runAt. One reminder exists per
// booking and meeting time.
func (c *Client) ScheduleReminder(ctx context.Context, n audit.Notification, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewBookingReminderTask(BookingReminderPayload{Notification: n, ScheduledAt: n.ScheduledAt})
	if err != nil {
		return err
	}
	id := "reminder:" + n.BookingID.String() + ":" + strconv.FormatInt(n.ScheduledAt.Unix(), 10)
	return c.enqueue(ctx, task, asynq.ProcessAt(runAt), asynq.TaskID(id))
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) error {
	opts = append(opts, asynq.Queue(c.queue))
	_, err := c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
