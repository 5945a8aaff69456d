// Package memstore is an in-process implementation of the scheduling
// repository. It enforces the same exclusive-slot, idempotency-key and
// single-successor uniqueness as the Postgres schema and is used by tests
// and local tooling.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/repository"
	"closer_scheduling_backend/platform/apperr"

	"github.com/google/uuid"
)

// Store holds closers, templates and bookings in memory.
type Store struct {
	mu        sync.Mutex
	closers   map[uuid.UUID]domain.Closer
	templates map[uuid.UUID][]domain.SlotTemplate
	bookings  map[uuid.UUID]*domain.Booking
	seq       int64
	created   map[uuid.UUID]int64

	staleWrites int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		closers:   make(map[uuid.UUID]domain.Closer),
		templates: make(map[uuid.UUID][]domain.SlotTemplate),
		bookings:  make(map[uuid.UUID]*domain.Booking),
		created:   make(map[uuid.UUID]int64),
	}
}

// InjectStaleWrites makes the next n versioned writes lose to a simulated
// concurrent writer: the stored version is bumped and ErrStaleVersion returned.
func (s *Store) InjectStaleWrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleWrites = n
}

// GetCloser returns the closer with id or NotFound.
func (s *Store) GetCloser(_ context.Context, id uuid.UUID) (domain.Closer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.closers[id]
	if !ok {
		return domain.Closer{}, apperr.NotFound("closer not found")
	}
	return c, nil
}

// ListClosers returns every closer ordered by id.
func (s *Store) ListClosers(_ context.Context) ([]domain.Closer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Closer, 0, len(s.closers))
	for _, c := range s.closers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// ListTemplates returns a closer's templates for one weekday and category,
// ordered by start time.
func (s *Store) ListTemplates(_ context.Context, closerID uuid.UUID, weekday time.Weekday, category domain.Category) ([]domain.SlotTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SlotTemplate, 0)
	for _, t := range s.templates[closerID] {
		if t.Weekday == weekday && t.Category == category {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

// UpsertCloser creates or replaces a closer.
func (s *Store) UpsertCloser(_ context.Context, closer domain.Closer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers[closer.ID] = closer
	return nil
}

// ReplaceTemplates swaps the full template set of a closer.
func (s *Store) ReplaceTemplates(_ context.Context, closerID uuid.UUID, templates []domain.SlotTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]domain.SlotTemplate, len(templates))
	copy(copied, templates)
	for i := range copied {
		copied[i].CloserID = closerID
		if copied[i].ID == uuid.Nil {
			copied[i].ID = uuid.New()
		}
	}
	s.templates[closerID] = copied
	return nil
}

// InsertBooking stores a new booking subject to the uniqueness rules.
func (s *Store) InsertBooking(_ context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(b)
}

func (s *Store) insertLocked(b domain.Booking) error {
	if err := s.checkUniqueLocked(b, uuid.Nil); err != nil {
		return err
	}
	s.seq++
	s.created[b.ID] = s.seq
	stored := clone(b)
	s.bookings[b.ID] = &stored
	return nil
}

// checkUniqueLocked mirrors ux_bookings_exclusive_active,
// ux_bookings_idempotency_key and ux_bookings_parent. ignore is excluded
// from the scan.
func (s *Store) checkUniqueLocked(b domain.Booking, ignore uuid.UUID) error {
	for id, other := range s.bookings {
		if id == ignore {
			continue
		}
		if b.IdempotencyKey != nil && other.IdempotencyKey != nil && *b.IdempotencyKey == *other.IdempotencyKey {
			return repository.ErrIdempotencyKeyUsed
		}
		if b.ParentBookingID != nil && other.ParentBookingID != nil && *b.ParentBookingID == *other.ParentBookingID {
			return repository.ErrParentHasSuccessor
		}
		if b.Policy.Kind() == domain.PolicyExclusive && b.Status.OccupiesCapacity() &&
			other.Policy.Kind() == domain.PolicyExclusive && other.Status.OccupiesCapacity() &&
			other.CloserID == b.CloserID && other.ScheduledAt.Equal(b.ScheduledAt) {
			return repository.ErrSlotTaken
		}
	}
	return nil
}

// GetBooking returns a booking with its history or NotFound.
func (s *Store) GetBooking(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, apperr.NotFound("booking not found")
	}
	return clone(*b), nil
}

// GetBookingByIdempotencyKey returns the booking stored under key, or nil.
func (s *Store) GetBookingByIdempotencyKey(_ context.Context, key string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.IdempotencyKey != nil && *b.IdempotencyKey == key {
			out := clone(*b)
			return &out, nil
		}
	}
	return nil, nil
}

// ListOccupying returns a closer's capacity-holding bookings in [from, to).
func (s *Store) ListOccupying(_ context.Context, closerID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.CloserID == closerID && b.Occupies() && !b.ScheduledAt.Before(from) && b.ScheduledAt.Before(to) {
			out = append(out, withoutHistory(*b))
		}
	}
	s.sortByTimeLocked(out, false)
	return out, nil
}

// FindActiveForLead returns the lead's latest capacity-holding booking in
// the category, or nil.
func (s *Store) FindActiveForLead(_ context.Context, leadID uuid.UUID, category domain.Category) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matches := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.LeadID == leadID && b.Category == category && b.Occupies() {
			matches = append(matches, withoutHistory(*b))
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	s.sortByTimeLocked(matches, true)
	return &matches[0], nil
}

// FindLatestCompletedForLead returns the lead's most recently completed
// booking in the category, or nil.
func (s *Store) FindLatestCompletedForLead(_ context.Context, leadID uuid.UUID, category domain.Category) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.Booking
	for _, b := range s.bookings {
		if b.LeadID != leadID || b.Category != category || b.CompletedAt == nil {
			continue
		}
		if b.Status != domain.StatusCompleted && b.Status != domain.StatusContractFinalized {
			continue
		}
		if latest == nil || b.CompletedAt.After(*latest.CompletedAt) {
			latest = b
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := withoutHistory(*latest)
	return &out, nil
}

// CountUpcomingByCloser counts capacity-holding bookings from from onwards.
func (s *Store) CountUpcomingByCloser(_ context.Context, closerIDs []uuid.UUID, from time.Time) (map[uuid.UUID]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[uuid.UUID]int, len(closerIDs))
	for _, id := range closerIDs {
		counts[id] = 0
	}
	for _, b := range s.bookings {
		if _, tracked := counts[b.CloserID]; tracked && b.Occupies() && !b.ScheduledAt.Before(from) {
			counts[b.CloserID]++
		}
	}
	return counts, nil
}

// UpdateStatus applies a versioned status change and appends entry.
func (s *Store) UpdateStatus(_ context.Context, id uuid.UUID, expectedVersion int, status domain.Status, completedAt *time.Time, entry domain.HistoryEntry) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.versionedLocked(id, expectedVersion)
	if err != nil {
		return domain.Booking{}, err
	}
	next := clone(*b)
	next.Status = status
	if completedAt != nil {
		t := *completedAt
		next.CompletedAt = &t
	}
	if err := s.checkUniqueLocked(next, id); err != nil {
		return domain.Booking{}, err
	}
	next.Version++
	next.UpdatedAt = entry.RecordedAt
	next.History = append(next.History, entry)
	*b = next
	return clone(next), nil
}

// AppendHistory appends entry under the expected version and optionally
// replaces the lead class.
func (s *Store) AppendHistory(_ context.Context, id uuid.UUID, expectedVersion int, leadClass *string, entry domain.HistoryEntry) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.versionedLocked(id, expectedVersion)
	if err != nil {
		return domain.Booking{}, err
	}
	if leadClass != nil {
		b.LeadClass = *leadClass
	}
	b.Version++
	b.UpdatedAt = entry.RecordedAt
	b.History = append(b.History, entry)
	return clone(*b), nil
}

// ReplaceWithSuccessor marks the original rescheduled and inserts its
// successor, or changes nothing.
func (s *Store) ReplaceWithSuccessor(_ context.Context, originalID uuid.UUID, expectedVersion int, originalEntry domain.HistoryEntry, successor domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.versionedLocked(originalID, expectedVersion)
	if err != nil {
		return err
	}
	if !b.Status.CanReschedule() {
		return repository.ErrStaleVersion
	}

	// apply to a copy so a failed successor insert leaves the original untouched
	updated := clone(*b)
	updated.Status = domain.StatusRescheduled
	updated.Version++
	updated.UpdatedAt = originalEntry.RecordedAt
	updated.History = append(updated.History, originalEntry)

	previous := *b
	*b = updated
	if err := s.insertLocked(successor); err != nil {
		*b = previous
		return err
	}
	return nil
}

// DeleteBooking removes a booking and detaches its successor.
func (s *Store) DeleteBooking(_ context.Context, id uuid.UUID) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, apperr.NotFound("booking not found")
	}
	removed := clone(*b)
	delete(s.bookings, id)
	delete(s.created, id)
	for _, other := range s.bookings {
		if other.ParentBookingID != nil && *other.ParentBookingID == id {
			other.ParentBookingID = nil
		}
	}
	return removed, nil
}

// ListLineage returns the chain containing id from root to latest successor.
func (s *Store) ListLineage(_ context.Context, id uuid.UUID) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start, ok := s.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking not found")
	}

	chain := []domain.Booking{withoutHistory(*start)}
	visited := map[uuid.UUID]bool{id: true}
	for cur := start; cur.ParentBookingID != nil; {
		parent, ok := s.bookings[*cur.ParentBookingID]
		if !ok || visited[parent.ID] {
			break
		}
		visited[parent.ID] = true
		chain = append([]domain.Booking{withoutHistory(*parent)}, chain...)
		cur = parent
	}
	for cur := id; ; {
		var child *domain.Booking
		for _, b := range s.bookings {
			if b.ParentBookingID != nil && *b.ParentBookingID == cur && !visited[b.ID] {
				if child == nil || s.created[b.ID] < s.created[child.ID] {
					child = b
				}
			}
		}
		if child == nil {
			break
		}
		visited[child.ID] = true
		chain = append(chain, withoutHistory(*child))
		cur = child.ID
	}
	return chain, nil
}

// Bookings returns a snapshot of every stored booking, for assertions.
func (s *Store) Bookings() []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, clone(*b))
	}
	s.sortByTimeLocked(out, false)
	return out
}

func (s *Store) versionedLocked(id uuid.UUID, expectedVersion int) (*domain.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking not found")
	}
	if s.staleWrites > 0 {
		s.staleWrites--
		b.Version++
		return nil, repository.ErrStaleVersion
	}
	if b.Version != expectedVersion {
		return nil, repository.ErrStaleVersion
	}
	return b, nil
}

func (s *Store) sortByTimeLocked(bookings []domain.Booking, newestFirst bool) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		if !a.ScheduledAt.Equal(b.ScheduledAt) {
			if newestFirst {
				return a.ScheduledAt.After(b.ScheduledAt)
			}
			return a.ScheduledAt.Before(b.ScheduledAt)
		}
		if newestFirst {
			return s.created[a.ID] > s.created[b.ID]
		}
		return s.created[a.ID] < s.created[b.ID]
	})
}

func clone(b domain.Booking) domain.Booking {
	out := b
	out.History = append([]domain.HistoryEntry(nil), b.History...)
	out.Qualification = b.Qualification.Clone()
	if b.ParentBookingID != nil {
		id := *b.ParentBookingID
		out.ParentBookingID = &id
	}
	if b.CompletedAt != nil {
		t := *b.CompletedAt
		out.CompletedAt = &t
	}
	if b.IdempotencyKey != nil {
		k := *b.IdempotencyKey
		out.IdempotencyKey = &k
	}
	return out
}

func withoutHistory(b domain.Booking) domain.Booking {
	out := clone(b)
	out.History = nil
	return out
}
