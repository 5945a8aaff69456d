package repository

import (
	"context"
	"fmt"

	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/platform/apperr"

	"github.com/google/uuid"
)

// maxLineageDepth bounds the recursive walk in both directions.
const maxLineageDepth = 256

// ListLineage returns the reschedule chain containing id, ordered from root to
// the latest successor. History is not loaded.
func (r *Repository) ListLineage(ctx context.Context, id uuid.UUID) ([]domain.Booking, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_booking_id, 0 AS depth FROM bookings WHERE id = $1
			UNION ALL
			SELECT b.id, b.parent_booking_id, a.depth + 1
			FROM bookings b JOIN ancestors a ON b.id = a.parent_booking_id
			WHERE a.depth < %[1]d
		), descendants AS (
			SELECT id, 0 AS depth FROM bookings WHERE id = $1
			UNION ALL
			SELECT b.id, d.depth + 1
			FROM bookings b JOIN descendants d ON b.parent_booking_id = d.id
			WHERE d.depth < %[1]d
		), chain AS (
			SELECT id, -depth AS pos FROM ancestors
			UNION
			SELECT id, depth AS pos FROM descendants
		)
		SELECT %[2]s, chain.pos
		FROM chain JOIN bookings ON bookings.id = chain.id
		ORDER BY chain.pos ASC, bookings.created_at ASC`, maxLineageDepth, qualifiedBookingColumns())

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list lineage: %w", err)
	}
	defer rows.Close()

	chain := make([]domain.Booking, 0)
	for rows.Next() {
		var pos int
		b, err := scanBooking(rows, &pos)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lineage booking: %w", err)
		}
		chain = append(chain, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lineage: %w", err)
	}
	if len(chain) == 0 {
		return nil, apperr.NotFound(bookingNotFoundMsg)
	}
	return chain, nil
}

func qualifiedBookingColumns() string {
	return `bookings.id, bookings.lead_id, bookings.closer_id, bookings.category, bookings.scheduled_at,
		bookings.booked_at, bookings.status, bookings.capacity_policy, bookings.lead_class, bookings.notes,
		bookings.parent_booking_id, bookings.qualification, bookings.completed_at, bookings.version,
		bookings.idempotency_key, bookings.created_at, bookings.updated_at`
}
