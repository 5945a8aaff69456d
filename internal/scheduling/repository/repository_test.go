package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestTranslateWriteErrorMapsExclusiveIndex(t *testing.T) {
	err := fmt.Errorf("exec: %w", &pgconn.PgError{Code: uniqueViolation, ConstraintName: exclusiveSlotIndex})
	if !errors.Is(translateWriteError(err), ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for exclusive index violation")
	}
}

func TestTranslateWriteErrorMapsIdempotencyIndex(t *testing.T) {
	err := &pgconn.PgError{Code: uniqueViolation, ConstraintName: idempotencyIndex}
	if !errors.Is(translateWriteError(err), ErrIdempotencyKeyUsed) {
		t.Fatalf("expected ErrIdempotencyKeyUsed for idempotency index violation")
	}
}

func TestTranslateWriteErrorMapsParentIndex(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation, ConstraintName: parentIndex})
	translated := translateWriteError(err)
	if !errors.Is(translated, ErrParentHasSuccessor) {
		t.Fatalf("expected ErrParentHasSuccessor for parent index violation, got %v", translated)
	}
	if got := wrapMutationError("failed to reschedule booking", translated); got != ErrParentHasSuccessor {
		t.Fatalf("expected sentinel to pass through unwrapped, got %v", got)
	}
}

func TestTranslateWriteErrorLeavesOtherErrors(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "bookings_closer_id_fkey"}
	if got := translateWriteError(fk); got != fk {
		t.Fatalf("expected foreign key violation to pass through, got %v", got)
	}
	otherUnique := &pgconn.PgError{Code: uniqueViolation, ConstraintName: "bookings_pkey"}
	if got := translateWriteError(otherUnique); got != otherUnique {
		t.Fatalf("expected primary key violation to pass through, got %v", got)
	}
}

func TestOccupyingFilterMatchesExclusiveIndex(t *testing.T) {
	if !strings.Contains(occupyingStatusFilter, "'scheduled'") || !strings.Contains(occupyingStatusFilter, "'confirmed'") {
		t.Fatalf("occupying filter must cover scheduled and confirmed, got %q", occupyingStatusFilter)
	}
	if strings.Contains(occupyingStatusFilter, "no_show") {
		t.Fatalf("no-show bookings must not occupy capacity")
	}
}

func TestQualifiedColumnsMatchBookingColumns(t *testing.T) {
	plain := strings.Fields(strings.ReplaceAll(bookingColumns, ",", " "))
	qualified := strings.Fields(strings.ReplaceAll(qualifiedBookingColumns(), ",", " "))
	if len(plain) != len(qualified) {
		t.Fatalf("column count mismatch: %d vs %d", len(plain), len(qualified))
	}
	for i := range plain {
		if qualified[i] != "bookings."+plain[i] {
			t.Fatalf("column %d: expected bookings.%s, got %s", i, plain[i], qualified[i])
		}
	}
}
