// Package booking coordinates booking creation, rescheduling and status
// changes on top of the booking store.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"closer_scheduling_backend/internal/events"
	"closer_scheduling_backend/internal/scheduling/availability"
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/duplicates"
	"closer_scheduling_backend/internal/scheduling/repository"
	"closer_scheduling_backend/platform/apperr"
	"closer_scheduling_backend/platform/logger"
	"closer_scheduling_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Store defines the booking persistence needed by the coordinator.
type Store interface {
	InsertBooking(ctx context.Context, b domain.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	GetBookingByIdempotencyKey(ctx context.Context, key string) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expectedVersion int, status domain.Status, completedAt *time.Time, entry domain.HistoryEntry) (domain.Booking, error)
	AppendHistory(ctx context.Context, id uuid.UUID, expectedVersion int, leadClass *string, entry domain.HistoryEntry) (domain.Booking, error)
	ReplaceWithSuccessor(ctx context.Context, originalID uuid.UUID, expectedVersion int, originalEntry domain.HistoryEntry, successor domain.Booking) error
	DeleteBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListLineage(ctx context.Context, id uuid.UUID) ([]domain.Booking, error)
}

// Catalog resolves closers.
type Catalog interface {
	GetCloser(ctx context.Context, id uuid.UUID) (domain.Closer, error)
}

// SlotChecker is the availability pre-check.
type SlotChecker interface {
	SlotAt(ctx context.Context, closerID uuid.UUID, category domain.Category, at time.Time) (availability.SlotAvailability, bool, error)
}

// DuplicateChecker is the advisory duplicate guard.
type DuplicateChecker interface {
	Check(ctx context.Context, leadID uuid.UUID, category domain.Category) (duplicates.Decision, error)
}

// IdempotencyStore deduplicates create and reschedule requests across
// instances. A nil store falls back to the idempotency_key column.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Complete(ctx context.Context, key string, bookingID uuid.UUID) error
	Lookup(ctx context.Context, key string) (uuid.UUID, bool, error)
	Release(ctx context.Context, key string) error
}

const removedStatus = "removed"

// Service is the booking coordinator.
type Service struct {
	store    Store
	catalog  Catalog
	slots    SlotChecker
	guard    DuplicateChecker
	policies domain.CategoryPolicies
	bus      events.Bus
	idem     IdempotencyStore
	log      *logger.Logger
	now      func() time.Time
}

// New creates a booking coordinator.
func New(store Store, catalog Catalog, slots SlotChecker, guard DuplicateChecker, policies domain.CategoryPolicies, bus events.Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		catalog:  catalog,
		slots:    slots,
		guard:    guard,
		policies: policies,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// SetIdempotencyStore enables cross-request deduplication.
func (s *Service) SetIdempotencyStore(store IdempotencyStore) {
	s.idem = store
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get returns a booking with its history.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// Lineage returns the reschedule chain containing id from root to latest.
func (s *Service) Lineage(ctx context.Context, id uuid.UUID) ([]domain.Booking, error) {
	return s.store.ListLineage(ctx, id)
}

// Create books a lead with a closer at a template time.
func (s *Service) Create(ctx context.Context, in CreateInput) (Result, error) {
	const op = "booking.Create"

	if err := validateCreate(in); err != nil {
		return Result{}, err.WithOp(op)
	}

	now := s.now()
	bookedAt := now
	if in.BookedAt != nil {
		bookedAt = *in.BookedAt
	}
	if bookedAt.After(now) {
		return Result{}, apperr.Validation("bookedAt must not be in the future").WithOp(op)
	}
	if bookedAt.After(in.ScheduledAt) {
		return Result{}, apperr.Validation("bookedAt must not be after scheduledAt").WithOp(op)
	}

	key := scopedKey("create", in.Actor, in.IdempotencyKey)
	if replayed, err := s.replay(ctx, key); err != nil || replayed != nil {
		return replayResult(replayed), err
	}

	if in.ParentBookingID != nil {
		if err := s.checkParent(ctx, *in.ParentBookingID); err != nil {
			return Result{}, err
		}
	}
	if _, err := s.eligibleCloser(ctx, in.CloserID, in.Category); err != nil {
		return Result{}, err
	}

	release, err := s.reserve(ctx, key)
	if err != nil {
		return Result{}, err
	}
	committed := false
	defer func() {
		if !committed {
			release()
		}
	}()

	var history []domain.HistoryEntry
	if in.Override {
		history = append(history, domain.HistoryEntry{
			Kind: domain.HistoryNote, Actor: in.Actor, Body: "duplicate check overridden", RecordedAt: now,
		})
	} else {
		decision, err := s.guard.Check(ctx, in.LeadID, in.Category)
		if err != nil {
			return Result{}, err
		}
		if decision.Blocked {
			s.log.WithContext(ctx).BookingRejected(string(OutcomeDuplicateBlocked), in.CloserID.String(), in.LeadID.String(), decision.Reason)
			return Result{Outcome: OutcomeDuplicateBlocked, Reason: decision.Reason, Duplicate: &decision}, nil
		}
	}

	slot, err := s.templateSlot(ctx, in.CloserID, in.Category, in.ScheduledAt)
	if err != nil {
		return Result{}, err
	}
	if !slot.IsAvailable {
		return s.capacityExceeded(ctx, in.CloserID, in.LeadID, in.ScheduledAt), nil
	}

	b := domain.Booking{
		ID:              uuid.New(),
		LeadID:          in.LeadID,
		CloserID:        in.CloserID,
		Category:        in.Category,
		ScheduledAt:     in.ScheduledAt,
		BookedAt:        bookedAt,
		Status:          domain.StatusScheduled,
		Policy:          slot.Policy,
		LeadClass:       strings.TrimSpace(in.LeadClass),
		Notes:           sanitize.Text(in.Notes),
		History:         history,
		ParentBookingID: in.ParentBookingID,
		Qualification:   in.Qualification.Clone(),
		Version:         1,
		IdempotencyKey:  optionalKey(key),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.InsertBooking(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return s.capacityExceeded(ctx, in.CloserID, in.LeadID, in.ScheduledAt), nil
		case errors.Is(err, repository.ErrIdempotencyKeyUsed):
			replayed, rerr := s.replay(ctx, key)
			if rerr != nil {
				return Result{}, rerr
			}
			if replayed != nil {
				return replayResult(replayed), nil
			}
			return Result{}, apperr.ConcurrencyConflict("idempotency key is already in use").WithOp(op)
		case errors.Is(err, repository.ErrParentHasSuccessor):
			return Result{}, apperr.Validation(err.Error()).WithOp(op)
		default:
			return Result{}, err
		}
	}

	committed = true
	s.complete(ctx, key, b.ID)

	s.log.WithContext(ctx).BookingEvent("created", b.ID.String(), "", string(b.Status))
	s.publishTransition(ctx, b, "", string(b.Status), in.Actor, b.Notes)
	s.publishNotification(ctx, b, events.NotificationBookingCreated, in.Actor)

	return Result{Outcome: OutcomeCreated, Booking: &b}, nil
}

// Reschedule moves a booking to a new time or closer, or annotates it in
// place when neither changes. A move marks the original rescheduled and
// creates its successor atomically.
func (s *Service) Reschedule(ctx context.Context, in RescheduleInput) (Result, error) {
	const op = "booking.Reschedule"

	if in.BookingID == uuid.Nil {
		return Result{}, apperr.Validation("bookingId is required").WithOp(op)
	}
	if in.NewScheduledAt.IsZero() {
		return Result{}, apperr.Validation("newScheduledAt is required").WithOp(op)
	}

	original, err := s.store.GetBooking(ctx, in.BookingID)
	if err != nil {
		return Result{}, err
	}

	// a completed move leaves the original terminal, so replay comes first
	key := scopedKey("reschedule:"+original.ID.String(), in.Actor, in.IdempotencyKey)
	if replayed, err := s.replay(ctx, key); err != nil || replayed != nil {
		return replayResult(replayed), err
	}
	if original.Status.IsTerminal() {
		return Result{}, apperr.Validation(fmt.Sprintf("booking is %s and cannot be rescheduled", original.Status)).WithOp(op)
	}

	targetCloser := original.CloserID
	if in.NewCloserID != nil && *in.NewCloserID != uuid.Nil {
		targetCloser = *in.NewCloserID
	}
	moving := targetCloser != original.CloserID || !in.NewScheduledAt.Equal(original.ScheduledAt)
	note := sanitize.Text(in.Note)

	release, err := s.reserve(ctx, key)
	if err != nil {
		return Result{}, err
	}
	committed := false
	defer func() {
		if !committed {
			release()
		}
	}()

	now := s.now()
	if !moving {
		if note == "" && in.LeadClass == nil {
			return Result{}, apperr.Validation("nothing to change: provide a new time, closer, lead class or note").WithOp(op)
		}
		entry := domain.HistoryEntry{Kind: domain.HistoryNote, Actor: in.Actor, Body: note, RecordedAt: now}
		updated, err := s.store.AppendHistory(ctx, original.ID, original.Version, in.LeadClass, entry)
		if err != nil {
			return Result{}, mapConflict(err, op)
		}
		committed = true
		s.complete(ctx, key, updated.ID)
		s.log.WithContext(ctx).BookingEvent("annotated", updated.ID.String(), string(original.Status), string(updated.Status))
		s.publishTransition(ctx, updated, string(original.Status), string(updated.Status), in.Actor, note)
		return Result{Outcome: OutcomeUpdated, Booking: &updated}, nil
	}

	if !original.Status.CanReschedule() {
		return Result{}, apperr.Validation(fmt.Sprintf("booking is %s and cannot be moved", original.Status)).WithOp(op)
	}
	if !in.NewScheduledAt.After(now) {
		return Result{}, apperr.Validation("newScheduledAt must be in the future").WithOp(op)
	}
	if err := s.checkParent(ctx, original.ID); err != nil {
		return Result{}, err
	}
	if _, err := s.eligibleCloser(ctx, targetCloser, original.Category); err != nil {
		return Result{}, err
	}
	slot, err := s.templateSlot(ctx, targetCloser, original.Category, in.NewScheduledAt)
	if err != nil {
		return Result{}, err
	}
	if !slot.IsAvailable {
		return s.capacityExceeded(ctx, targetCloser, original.LeadID, in.NewScheduledAt), nil
	}

	entry := domain.RescheduleEntry(original.ScheduledAt, original.CloserID, in.NewScheduledAt, targetCloser, note, in.Actor, now)
	leadClass := original.LeadClass
	if in.LeadClass != nil {
		leadClass = strings.TrimSpace(*in.LeadClass)
	}
	parentID := original.ID
	successor := domain.Booking{
		ID:              uuid.New(),
		LeadID:          original.LeadID,
		CloserID:        targetCloser,
		Category:        original.Category,
		ScheduledAt:     in.NewScheduledAt,
		BookedAt:        now,
		Status:          domain.StatusScheduled,
		Policy:          slot.Policy,
		LeadClass:       leadClass,
		Notes:           original.Notes,
		History:         append(append([]domain.HistoryEntry(nil), original.History...), entry),
		ParentBookingID: &parentID,
		Qualification:   original.Qualification.Clone(),
		Version:         1,
		IdempotencyKey:  optionalKey(key),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.ReplaceWithSuccessor(ctx, original.ID, original.Version, entry, successor); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return s.capacityExceeded(ctx, targetCloser, original.LeadID, in.NewScheduledAt), nil
		case errors.Is(err, repository.ErrIdempotencyKeyUsed):
			if replayed, rerr := s.replay(ctx, key); rerr != nil || replayed != nil {
				return replayResult(replayed), rerr
			}
			return Result{}, apperr.ConcurrencyConflict("idempotency key is already in use").WithOp(op)
		case errors.Is(err, repository.ErrParentHasSuccessor):
			return Result{}, apperr.Validation("booking already has a successor").WithOp(op)
		default:
			return Result{}, mapConflict(err, op)
		}
	}

	committed = true
	s.complete(ctx, key, successor.ID)

	rescheduled := original
	rescheduled.Status = domain.StatusRescheduled
	s.log.WithContext(ctx).BookingEvent("rescheduled", original.ID.String(), string(original.Status), string(domain.StatusRescheduled))
	s.publishTransition(ctx, rescheduled, string(original.Status), string(domain.StatusRescheduled), in.Actor, entry.Body)
	s.publishTransition(ctx, successor, "", string(successor.Status), in.Actor, entry.Body)
	s.publishNotification(ctx, successor, events.NotificationBookingRescheduled, in.Actor)

	return Result{Outcome: OutcomeCreated, Booking: &successor}, nil
}

// TransitionStatus applies a state machine move. A lost optimistic write is
// retried once against fresh state before surfacing ConcurrencyConflict.
func (s *Service) TransitionStatus(ctx context.Context, in TransitionInput) (domain.Booking, error) {
	const op = "booking.TransitionStatus"

	if in.BookingID == uuid.Nil {
		return domain.Booking{}, apperr.Validation("bookingId is required").WithOp(op)
	}
	if _, err := domain.ParseStatus(string(in.Status)); err != nil {
		return domain.Booking{}, apperr.Validation(err.Error()).WithOp(op)
	}
	note := sanitize.Text(in.Note)

	for attempt := 0; attempt < 2; attempt++ {
		current, err := s.store.GetBooking(ctx, in.BookingID)
		if err != nil {
			return domain.Booking{}, err
		}
		if err := domain.CanTransition(current.Status, in.Status, s.policies.For(current.Category)); err != nil {
			return domain.Booking{}, apperr.Validation(err.Error()).WithOp(op)
		}

		now := s.now()
		var completedAt *time.Time
		if in.Status == domain.StatusCompleted {
			completedAt = &now
		}
		entry := domain.StatusEntry(current.Status, in.Status, note, in.Actor, now)

		updated, err := s.store.UpdateStatus(ctx, current.ID, current.Version, in.Status, completedAt, entry)
		if errors.Is(err, repository.ErrStaleVersion) {
			s.log.WithContext(ctx).Info("booking status write lost a race; retrying", "booking_id", current.ID.String(), "attempt", attempt+1)
			continue
		}
		if err != nil {
			return domain.Booking{}, mapConflict(err, op)
		}

		s.log.WithContext(ctx).BookingEvent("status_changed", updated.ID.String(), string(current.Status), string(updated.Status))
		s.publishTransition(ctx, updated, string(current.Status), string(updated.Status), in.Actor, note)
		if updated.Status == domain.StatusCancelled {
			s.publishNotification(ctx, updated, events.NotificationBookingCancelled, in.Actor)
		}
		return updated, nil
	}

	return domain.Booking{}, apperr.ConcurrencyConflict("booking was modified concurrently; reload and try again").WithOp(op)
}

// Remove deletes a booking administratively. Its successors become lineage roots.
func (s *Service) Remove(ctx context.Context, id uuid.UUID, actor string) (domain.Booking, error) {
	removed, err := s.store.DeleteBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, err
	}
	s.log.WithContext(ctx).BookingEvent("removed", removed.ID.String(), string(removed.Status), removedStatus)
	s.publishTransition(ctx, removed, string(removed.Status), removedStatus, actor, "administrative removal")
	return removed, nil
}

func validateCreate(in CreateInput) *apperr.Error {
	missing := make([]string, 0, 4)
	if in.LeadID == uuid.Nil {
		missing = append(missing, "leadId")
	}
	if in.CloserID == uuid.Nil {
		missing = append(missing, "closerId")
	}
	if in.Category.IsZero() {
		missing = append(missing, "category")
	}
	if in.ScheduledAt.IsZero() {
		missing = append(missing, "scheduledAt")
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

// checkParent rejects a missing parent or one that already has a successor.
func (s *Service) checkParent(ctx context.Context, parentID uuid.UUID) error {
	lineage, err := s.store.ListLineage(ctx, parentID)
	if err != nil {
		return err
	}
	for _, b := range lineage {
		if b.ParentBookingID != nil && *b.ParentBookingID == parentID {
			return apperr.Validation("parent booking already has a successor")
		}
	}
	return nil
}

func (s *Service) eligibleCloser(ctx context.Context, closerID uuid.UUID, category domain.Category) (domain.Closer, error) {
	closer, err := s.catalog.GetCloser(ctx, closerID)
	if err != nil {
		return domain.Closer{}, err
	}
	if !closer.Active {
		return domain.Closer{}, apperr.Validation("closer is not active")
	}
	if !closer.Serves(category) {
		return domain.Closer{}, apperr.Validation(fmt.Sprintf("closer does not take %s meetings", category))
	}
	return closer, nil
}

func (s *Service) templateSlot(ctx context.Context, closerID uuid.UUID, category domain.Category, at time.Time) (availability.SlotAvailability, error) {
	slot, found, err := s.slots.SlotAt(ctx, closerID, category, at)
	if err != nil {
		return availability.SlotAvailability{}, err
	}
	if !found {
		return availability.SlotAvailability{}, apperr.Validation("scheduledAt does not match a configured slot of the closer")
	}
	return slot, nil
}

func (s *Service) capacityExceeded(ctx context.Context, closerID, leadID uuid.UUID, at time.Time) Result {
	reason := fmt.Sprintf("closer %s is already booked at %s", closerID, at.UTC().Format(time.RFC3339))
	s.log.WithContext(ctx).BookingRejected(string(OutcomeCapacityExceeded), closerID.String(), leadID.String(), reason)
	return Result{Outcome: OutcomeCapacityExceeded, Reason: reason}
}

func mapConflict(err error, op string) error {
	if errors.Is(err, repository.ErrStaleVersion) {
		return apperr.ConcurrencyConflict("booking was modified concurrently; reload and try again").WithOp(op)
	}
	return err
}
