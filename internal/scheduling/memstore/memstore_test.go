package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/repository"

	"github.com/google/uuid"
)

func booking(parent *uuid.UUID, at time.Time) domain.Booking {
	return domain.Booking{
		ID:              uuid.New(),
		LeadID:          uuid.New(),
		CloserID:        uuid.New(),
		Category:        domain.FirstMeeting,
		ScheduledAt:     at,
		BookedAt:        at.Add(-time.Hour),
		Status:          domain.StatusScheduled,
		Policy:          domain.SharedPolicy{},
		ParentBookingID: parent,
		Version:         1,
	}
}

func TestInsertRejectsSecondSuccessor(t *testing.T) {
	ctx := context.Background()
	store := New()
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	root := booking(nil, at)
	if err := store.InsertBooking(ctx, root); err != nil {
		t.Fatalf("insert root: %v", err)
	}
	child := booking(&root.ID, at.Add(24*time.Hour))
	if err := store.InsertBooking(ctx, child); err != nil {
		t.Fatalf("insert child: %v", err)
	}

	fork := booking(&root.ID, at.Add(48*time.Hour))
	if err := store.InsertBooking(ctx, fork); !errors.Is(err, repository.ErrParentHasSuccessor) {
		t.Fatalf("expected ErrParentHasSuccessor, got %v", err)
	}

	chain, err := store.ListLineage(ctx, root.ID)
	if err != nil {
		t.Fatalf("list lineage: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != root.ID || chain[1].ID != child.ID {
		t.Fatalf("expected root then child, got %d bookings", len(chain))
	}
}

func TestDeleteFreesParentForNewSuccessor(t *testing.T) {
	ctx := context.Background()
	store := New()
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	root := booking(nil, at)
	child := booking(&root.ID, at.Add(time.Hour))
	for _, b := range []domain.Booking{root, child} {
		if err := store.InsertBooking(ctx, b); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	if _, err := store.DeleteBooking(ctx, child.ID); err != nil {
		t.Fatalf("delete child: %v", err)
	}
	if err := store.InsertBooking(ctx, booking(&root.ID, at.Add(2*time.Hour))); err != nil {
		t.Fatalf("expected parent to accept a new successor, got %v", err)
	}
}
