// Package events lists the booking events exchanged between modules.
// The bus itself lives in platform/events and is re-exported here.
package events

import (
	"time"

	"closer_scheduling_backend/platform/events"
	"closer_scheduling_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewBaseEventAt = events.NewBaseEventAt
)

// NewInMemoryBus creates the in-process bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Scheduling Domain Events
// =============================================================================

// BookingTransitioned is published after every successful booking mutation:
// creation (FromStatus empty), status change, reschedule and administrative removal.
type BookingTransitioned struct {
	BaseEvent
	BookingID  uuid.UUID `json:"bookingId"`
	LeadID     uuid.UUID `json:"leadId"`
	CloserID   uuid.UUID `json:"closerId"`
	Category   string    `json:"category"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Actor      string    `json:"actor"`
	Note       string    `json:"note,omitempty"`
}

func (e BookingTransitioned) EventName() string { return "scheduling.booking.transitioned" }

// Notification kinds carried by BookingNotificationRequested.
const (
	NotificationBookingCreated     = "booking_created"
	NotificationBookingRescheduled = "booking_rescheduled"
	NotificationBookingCancelled   = "booking_cancelled"
	NotificationBookingReminder    = "booking_reminder"
)

// BookingNotificationRequested asks the external messaging system to inform the
// lead and closer. The engine never delivers messages itself.
type BookingNotificationRequested struct {
	BaseEvent
	Kind        string    `json:"kind"`
	BookingID   uuid.UUID `json:"bookingId"`
	LeadID      uuid.UUID `json:"leadId"`
	CloserID    uuid.UUID `json:"closerId"`
	Category    string    `json:"category"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Actor       string    `json:"actor"`
}

func (e BookingNotificationRequested) EventName() string {
	return "scheduling.booking.notification_requested"
}
