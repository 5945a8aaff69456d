package scheduler

import (
	"encoding/json"
	"time"

	"closer_scheduling_backend/internal/audit"

	"github.com/hibiken/asynq"
)

const TaskAuditDeliver = "scheduling.audit.deliver"

const TaskNotificationRequested = "scheduling.notification.requested"

const TaskBookingReminder = "scheduling.booking.reminder"

// BookingReminderPayload carries the notification to send and the meeting
// time it was scheduled for. A booking that has since moved skips it.
type BookingReminderPayload struct {
	Notification audit.Notification `json:"notification"`
	ScheduledAt  time.Time          `json:"scheduledAt"`
}

func NewAuditDeliverTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditDeliver, data), nil
}

func ParseAuditDeliverPayload(task *asynq.Task) (audit.Entry, error) {
	var entry audit.Entry
	if err := json.Unmarshal(task.Payload(), &entry); err != nil {
		return audit.Entry{}, err
	}
	return entry, nil
}

func NewNotificationRequestedTask(n audit.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationRequested, data), nil
}

func ParseNotificationRequestedPayload(task *asynq.Task) (audit.Notification, error) {
	var n audit.Notification
	if err := json.Unmarshal(task.Payload(), &n); err != nil {
		return audit.Notification{}, err
	}
	return n, nil
}

func NewBookingReminderTask(payload BookingReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookingReminder, data), nil
}

func ParseBookingReminderPayload(task *asynq.Task) (BookingReminderPayload, error) {
	var payload BookingReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BookingReminderPayload{}, err
	}
	return payload, nil
}
