// Package audit forwards booking events to the external timeline and
// messaging systems. Forwarding is fire-and-forget: a failed emission is
// logged and never reaches the caller that changed the booking.
package audit

import (
	"time"

	"closer_scheduling_backend/internal/events"

	"github.com/google/uuid"
)

// Entry is one audit log record. ID is the emitting event's id, so a
// redelivered entry is stored once.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	BookingID  uuid.UUID `json:"bookingId"`
	LeadID     uuid.UUID `json:"leadId"`
	CloserID   uuid.UUID `json:"closerId"`
	Category   string    `json:"category"`
	EventName  string    `json:"eventName"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	Actor      string    `json:"actor"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notification is a request for the messaging system to inform the lead and
// the closer about a booking.
type Notification struct {
	EventID     uuid.UUID `json:"eventId"`
	Kind        string    `json:"kind"`
	BookingID   uuid.UUID `json:"bookingId"`
	LeadID      uuid.UUID `json:"leadId"`
	CloserID    uuid.UUID `json:"closerId"`
	Category    string    `json:"category"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Actor       string    `json:"actor"`
}

// EntryFromTransition converts a transition event into its audit record.
func EntryFromTransition(e events.BookingTransitioned) Entry {
	return Entry{
		ID:         e.EventID(),
		BookingID:  e.BookingID,
		LeadID:     e.LeadID,
		CloserID:   e.CloserID,
		Category:   e.Category,
		EventName:  e.EventName(),
		FromStatus: e.FromStatus,
		ToStatus:   e.ToStatus,
		Actor:      e.Actor,
		Note:       e.Note,
		OccurredAt: e.OccurredAt(),
	}
}

// NotificationFromEvent converts a notification request event.
func NotificationFromEvent(e events.BookingNotificationRequested) Notification {
	return Notification{
		EventID:     e.EventID(),
		Kind:        e.Kind,
		BookingID:   e.BookingID,
		LeadID:      e.LeadID,
		CloserID:    e.CloserID,
		Category:    e.Category,
		ScheduledAt: e.ScheduledAt,
		Actor:       e.Actor,
	}
}

// Event rebuilds the bus event for the notification, keeping its id.
func (n Notification) Event() events.BookingNotificationRequested {
	base := events.NewBaseEvent()
	if n.EventID != uuid.Nil {
		base.ID = n.EventID
	}
	return events.BookingNotificationRequested{
		BaseEvent:   base,
		Kind:        n.Kind,
		BookingID:   n.BookingID,
		LeadID:      n.LeadID,
		CloserID:    n.CloserID,
		Category:    n.Category,
		ScheduledAt: n.ScheduledAt,
		Actor:       n.Actor,
	}
}
