package booking

import (
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/duplicates"

	"github.com/google/uuid"
)

// Outcome is the result category of a create or reschedule call. Capacity and
// duplicate rejections are outcomes, not errors.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeUpdated          Outcome = "updated"
	OutcomeReplayed         Outcome = "replayed"
	OutcomeCapacityExceeded Outcome = "capacity_exceeded"
	OutcomeDuplicateBlocked Outcome = "duplicate_blocked"
)

// Result carries the outcome and, when one was written or replayed, the booking.
type Result struct {
	Outcome   Outcome
	Booking   *domain.Booking
	Reason    string
	Duplicate *duplicates.Decision
}

// Succeeded reports whether the call produced or returned a booking.
func (r Result) Succeeded() bool {
	switch r.Outcome {
	case OutcomeCreated, OutcomeUpdated, OutcomeReplayed:
		return true
	default:
		return false
	}
}

// CreateInput is a booking request.
type CreateInput struct {
	LeadID      uuid.UUID
	CloserID    uuid.UUID
	Category    domain.Category
	ScheduledAt time.Time
	// BookedAt defaults to now. It may lie in the past for retroactive entry.
	BookedAt        *time.Time
	LeadClass       string
	Notes           string
	ParentBookingID *uuid.UUID
	Qualification   domain.QualificationSnapshot
	// Override skips the duplicate guard. Callers restrict it to administrators.
	Override       bool
	Actor          string
	IdempotencyKey string
}

// RescheduleInput moves a booking or annotates it in place.
type RescheduleInput struct {
	BookingID      uuid.UUID
	NewScheduledAt time.Time
	NewCloserID    *uuid.UUID
	LeadClass      *string
	Note           string
	Actor          string
	IdempotencyKey string
}

// TransitionInput is a status change request.
type TransitionInput struct {
	BookingID uuid.UUID
	Status    domain.Status
	Note      string
	Actor     string
}
