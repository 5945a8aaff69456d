package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const bookingColumns = `id, lead_id, closer_id, category, scheduled_at, booked_at, status,
	capacity_policy, lead_class, notes, parent_booking_id, qualification, completed_at,
	version, idempotency_key, created_at, updated_at`

const occupyingStatusFilter = `status IN ('scheduled', 'confirmed')`

type bookingRow struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	CloserID        uuid.UUID
	Category        string
	ScheduledAt     time.Time
	BookedAt        time.Time
	Status          string
	CapacityPolicy  string
	LeadClass       string
	Notes           string
	ParentBookingID *uuid.UUID
	Qualification   []byte
	CompletedAt     *time.Time
	Version         int
	IdempotencyKey  *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r bookingRow) toDomain() (domain.Booking, error) {
	category, err := domain.ParseCategory(r.Category)
	if err != nil {
		return domain.Booking{}, err
	}
	status, err := domain.ParseStatus(r.Status)
	if err != nil {
		return domain.Booking{}, err
	}
	policy, err := domain.PolicyFor(domain.PolicyKind(r.CapacityPolicy))
	if err != nil {
		return domain.Booking{}, err
	}
	qualification := domain.QualificationSnapshot{}
	if len(r.Qualification) > 0 {
		if err := json.Unmarshal(r.Qualification, &qualification); err != nil {
			return domain.Booking{}, fmt.Errorf("failed to decode qualification: %w", err)
		}
	}

	return domain.Booking{
		ID:              r.ID,
		LeadID:          r.LeadID,
		CloserID:        r.CloserID,
		Category:        category,
		ScheduledAt:     r.ScheduledAt,
		BookedAt:        r.BookedAt,
		Status:          status,
		Policy:          policy,
		LeadClass:       r.LeadClass,
		Notes:           r.Notes,
		ParentBookingID: r.ParentBookingID,
		Qualification:   qualification,
		CompletedAt:     r.CompletedAt,
		Version:         r.Version,
		IdempotencyKey:  r.IdempotencyKey,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

func scanBooking(row pgx.Row, extra ...any) (domain.Booking, error) {
	var r bookingRow
	dest := []any{
		&r.ID, &r.LeadID, &r.CloserID, &r.Category, &r.ScheduledAt, &r.BookedAt, &r.Status,
		&r.CapacityPolicy, &r.LeadClass, &r.Notes, &r.ParentBookingID, &r.Qualification, &r.CompletedAt,
		&r.Version, &r.IdempotencyKey, &r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return domain.Booking{}, err
	}
	return r.toDomain()
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, nil
}

// dbtx is satisfied by both the pool and a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func insertBooking(ctx context.Context, q dbtx, b domain.Booking) error {
	qualification, err := json.Marshal(b.Qualification.Clone())
	if err != nil {
		return fmt.Errorf("failed to encode qualification: %w", err)
	}

	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = q.Exec(ctx, query,
		b.ID, b.LeadID, b.CloserID, b.Category.String(), b.ScheduledAt, b.BookedAt, string(b.Status),
		string(b.Policy.Kind()), b.LeadClass, b.Notes, b.ParentBookingID, qualification, b.CompletedAt,
		b.Version, b.IdempotencyKey, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return translateWriteError(err)
	}

	for _, entry := range b.History {
		if err := insertHistory(ctx, q, b.ID, entry); err != nil {
			return err
		}
	}
	return nil
}

func insertHistory(ctx context.Context, q dbtx, bookingID uuid.UUID, entry domain.HistoryEntry) error {
	query := `INSERT INTO booking_history_entries (booking_id, kind, actor, body, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := q.Exec(ctx, query, bookingID, string(entry.Kind), entry.Actor, entry.Body, entry.RecordedAt); err != nil {
		return fmt.Errorf("failed to append booking history: %w", err)
	}
	return nil
}

// InsertBooking stores a new booking with its history entries.
func (r *Repository) InsertBooking(ctx context.Context, b domain.Booking) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return insertBooking(ctx, tx, b)
	})
	if err != nil {
		if isWriteConflict(err) {
			return err
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// GetBooking loads a booking including its history.
func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, apperr.NotFound(bookingNotFoundMsg)
		}
		return domain.Booking{}, fmt.Errorf("failed to get booking: %w", err)
	}

	if b.History, err = r.listHistory(ctx, id); err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

// GetBookingByIdempotencyKey returns the booking created under key, or nil.
func (r *Repository) GetBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE idempotency_key = $1`

	b, err := scanBooking(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking by idempotency key: %w", err)
	}
	if b.History, err = r.listHistory(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *Repository) listHistory(ctx context.Context, bookingID uuid.UUID) ([]domain.HistoryEntry, error) {
	query := `SELECT kind, actor, body, recorded_at FROM booking_history_entries
		WHERE booking_id = $1 ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking history: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var (
			e    domain.HistoryEntry
			kind string
		)
		if err := rows.Scan(&kind, &e.Actor, &e.Body, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking history: %w", err)
		}
		e.Kind = domain.HistoryKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booking history: %w", err)
	}
	return entries, nil
}

// ListOccupying returns a closer's scheduled/confirmed bookings in [from, to).
// History is not loaded.
func (r *Repository) ListOccupying(ctx context.Context, closerID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE closer_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 AND ` + occupyingStatusFilter + `
		ORDER BY scheduled_at ASC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, closerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list occupying bookings: %w", err)
	}
	return collectBookings(rows)
}

// FindActiveForLead returns the lead's latest scheduled/confirmed booking in a category, or nil.
func (r *Repository) FindActiveForLead(ctx context.Context, leadID uuid.UUID, category domain.Category) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE lead_id = $1 AND category = $2 AND ` + occupyingStatusFilter + `
		ORDER BY scheduled_at DESC, created_at DESC
		LIMIT 1`

	return r.findOne(ctx, "failed to find active booking", query, leadID, category.String())
}

// FindLatestCompletedForLead returns the lead's most recently completed booking in a category, or nil.
func (r *Repository) FindLatestCompletedForLead(ctx context.Context, leadID uuid.UUID, category domain.Category) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE lead_id = $1 AND category = $2 AND completed_at IS NOT NULL
			AND status IN ('completed', 'contract_finalized')
		ORDER BY completed_at DESC
		LIMIT 1`

	return r.findOne(ctx, "failed to find completed booking", query, leadID, category.String())
}

func (r *Repository) findOne(ctx context.Context, failMsg, query string, args ...any) (*domain.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", failMsg, err)
	}
	return &b, nil
}

// CountUpcomingByCloser counts scheduled/confirmed bookings at or after from, per closer.
// Closers without bookings are present with zero.
func (r *Repository) CountUpcomingByCloser(ctx context.Context, closerIDs []uuid.UUID, from time.Time) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(closerIDs))
	for _, id := range closerIDs {
		counts[id] = 0
	}
	if len(closerIDs) == 0 {
		return counts, nil
	}

	query := `SELECT closer_id, COUNT(*) FROM bookings
		WHERE closer_id = ANY($1::uuid[]) AND scheduled_at >= $2 AND ` + occupyingStatusFilter + `
		GROUP BY closer_id`

	ids := make([]string, 0, len(closerIDs))
	for _, id := range closerIDs {
		ids = append(ids, id.String())
	}

	rows, err := r.pool.Query(ctx, query, ids, from)
	if err != nil {
		return nil, fmt.Errorf("failed to count upcoming bookings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    uuid.UUID
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan booking count: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booking counts: %w", err)
	}
	return counts, nil
}

// UpdateStatus writes a new status when the stored version still matches and
// appends the history entry. Returns the updated booking.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status domain.Status, completedAt *time.Time, entry domain.HistoryEntry) (domain.Booking, error) {
	query := `UPDATE bookings SET
			status = $3,
			completed_at = COALESCE($4, completed_at),
			version = version + 1,
			updated_at = $5
		WHERE id = $1 AND version = $2`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, id, expectedVersion, string(status), completedAt, entry.RecordedAt)
		if err != nil {
			return translateWriteError(err)
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrStale(ctx, tx, id)
		}
		return insertHistory(ctx, tx, id, entry)
	})
	if err != nil {
		return domain.Booking{}, wrapMutationError("failed to update booking status", err)
	}
	return r.GetBooking(ctx, id)
}

// AppendHistory records an in-place change: the version is bumped, lead class
// optionally replaced and the entry appended.
func (r *Repository) AppendHistory(ctx context.Context, id uuid.UUID, expectedVersion int, leadClass *string, entry domain.HistoryEntry) (domain.Booking, error) {
	query := `UPDATE bookings SET
			lead_class = COALESCE($3, lead_class),
			version = version + 1,
			updated_at = $4
		WHERE id = $1 AND version = $2`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, id, expectedVersion, leadClass, entry.RecordedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrStale(ctx, tx, id)
		}
		return insertHistory(ctx, tx, id, entry)
	})
	if err != nil {
		return domain.Booking{}, wrapMutationError("failed to append booking history", err)
	}
	return r.GetBooking(ctx, id)
}

// ReplaceWithSuccessor marks the original booking rescheduled and inserts its
// successor in one transaction. If the successor cannot be inserted the
// original is left untouched.
func (r *Repository) ReplaceWithSuccessor(ctx context.Context, originalID uuid.UUID, expectedVersion int, originalEntry domain.HistoryEntry, successor domain.Booking) error {
	query := `UPDATE bookings SET
			status = 'rescheduled',
			version = version + 1,
			updated_at = $3
		WHERE id = $1 AND version = $2 AND status IN ('scheduled', 'confirmed', 'no_show')`

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, originalID, expectedVersion, originalEntry.RecordedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.missingOrStale(ctx, tx, originalID)
		}
		if err := insertHistory(ctx, tx, originalID, originalEntry); err != nil {
			return err
		}
		return insertBooking(ctx, tx, successor)
	})
	if err != nil {
		return wrapMutationError("failed to reschedule booking", err)
	}
	return nil
}

// DeleteBooking removes a booking. Children are detached by the foreign key
// and become lineage roots.
func (r *Repository) DeleteBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	query := `DELETE FROM bookings WHERE id = $1 RETURNING ` + bookingColumns

	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Booking{}, apperr.NotFound(bookingNotFoundMsg)
		}
		return domain.Booking{}, fmt.Errorf("failed to delete booking: %w", err)
	}
	return b, nil
}

func (r *Repository) missingOrStale(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	if !exists {
		return apperr.NotFound(bookingNotFoundMsg)
	}
	return ErrStaleVersion
}

func wrapMutationError(msg string, err error) error {
	if isWriteConflict(err) || errors.Is(err, ErrStaleVersion) {
		return err
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isWriteConflict(err error) bool {
	return errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrIdempotencyKeyUsed) || errors.Is(err, ErrParentHasSuccessor)
}
