// Package repository is the Postgres store for closers, slot templates and bookings.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation = "23505"

	exclusiveSlotIndex = "ux_bookings_exclusive_active"
	idempotencyIndex   = "ux_bookings_idempotency_key"
	parentIndex        = "ux_bookings_parent"

	bookingNotFoundMsg = "booking not found"
	closerNotFoundMsg  = "closer not found"
)

var (
	// ErrSlotTaken is returned when an insert would place a second active
	// booking on an exclusive closer+time.
	ErrSlotTaken = errors.New("exclusive slot already taken")
	// ErrStaleVersion is returned when a conditional update lost to a
	// concurrent writer.
	ErrStaleVersion = errors.New("booking was modified concurrently")
	// ErrIdempotencyKeyUsed is returned when another booking already carries
	// the idempotency key.
	ErrIdempotencyKeyUsed = errors.New("idempotency key already used")
	// ErrParentHasSuccessor is returned when the parent booking already has
	// a successor.
	ErrParentHasSuccessor = errors.New("parent booking already has a successor")
)

// Repository provides database operations for the scheduling context.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new scheduling repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// translateWriteError maps constraint violations to the package sentinels.
func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case exclusiveSlotIndex:
		return ErrSlotTaken
	case idempotencyIndex:
		return ErrIdempotencyKeyUsed
	case parentIndex:
		return ErrParentHasSuccessor
	default:
		return err
	}
}
