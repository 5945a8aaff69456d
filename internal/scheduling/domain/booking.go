package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Booking is one appointment between a lead and a closer.
type Booking struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	CloserID        uuid.UUID
	Category        Category
	ScheduledAt     time.Time
	BookedAt        time.Time
	Status          Status
	Policy          CapacityPolicy
	LeadClass       string
	Notes           string
	History         []HistoryEntry
	ParentBookingID *uuid.UUID
	Qualification   QualificationSnapshot
	CompletedAt     *time.Time
	Version         int
	IdempotencyKey  *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HistoryKind classifies a history entry.
type HistoryKind string

const (
	HistoryNote        HistoryKind = "note"
	HistoryStatus      HistoryKind = "status"
	HistoryRescheduled HistoryKind = "rescheduled"
)

// HistoryEntry is an append-only record attached to a booking.
type HistoryEntry struct {
	Kind       HistoryKind
	Actor      string
	Body       string
	RecordedAt time.Time
}

// Format renders the entry for the derived notes view.
func (e HistoryEntry) Format() string {
	header := fmt.Sprintf("[%s] %s", e.RecordedAt.UTC().Format(time.RFC3339), e.Kind)
	if e.Actor != "" {
		header += " by " + e.Actor
	}
	if e.Body == "" {
		return header
	}
	return header + ": " + e.Body
}

// NotesView is the concatenated text form of the initial notes followed by
// every history entry, separated by blank lines.
func (b Booking) NotesView() string {
	parts := make([]string, 0, len(b.History)+1)
	if b.Notes != "" {
		parts = append(parts, b.Notes)
	}
	for _, entry := range b.History {
		parts = append(parts, entry.Format())
	}
	return strings.Join(parts, "\n\n")
}

// Occupies reports whether the booking holds capacity at its slot.
func (b Booking) Occupies() bool { return b.Status.OccupiesCapacity() }

// RescheduleEntry builds the history entry describing a move.
func RescheduleEntry(oldTime time.Time, oldCloser uuid.UUID, newTime time.Time, newCloser uuid.UUID, note, actor string, at time.Time) HistoryEntry {
	body := fmt.Sprintf("moved from %s (closer %s) to %s (closer %s)",
		oldTime.UTC().Format(time.RFC3339), oldCloser,
		newTime.UTC().Format(time.RFC3339), newCloser)
	if note != "" {
		body += ". " + note
	}
	return HistoryEntry{Kind: HistoryRescheduled, Actor: actor, Body: body, RecordedAt: at}
}

// StatusEntry builds the history entry for a status change.
func StatusEntry(from, to Status, note, actor string, at time.Time) HistoryEntry {
	body := fmt.Sprintf("%s -> %s", from, to)
	if note != "" {
		body += ". " + note
	}
	return HistoryEntry{Kind: HistoryStatus, Actor: actor, Body: body, RecordedAt: at}
}
