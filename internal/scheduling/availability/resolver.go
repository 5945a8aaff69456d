// Package availability computes which template times of a closer are open on
// a given day and how many bookings already occupy each.
package availability

import (
	"context"
	"fmt"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"

	"github.com/google/uuid"
)

// Catalog is the slot catalog view needed by the resolver.
type Catalog interface {
	GetCloser(ctx context.Context, id uuid.UUID) (domain.Closer, error)
	TemplatesFor(ctx context.Context, closerID uuid.UUID, weekday time.Weekday, category domain.Category) ([]domain.SlotTemplate, error)
}

// Repository defines the booking reads needed by the resolver.
type Repository interface {
	ListOccupying(ctx context.Context, closerID uuid.UUID, from, to time.Time) ([]domain.Booking, error)
}

// UnclassifiedLeadClass buckets occupants booked without a lead class.
const UnclassifiedLeadClass = "unclassified"

// SlotAvailability describes one template time on a concrete day.
type SlotAvailability struct {
	Time          time.Time
	StartTime     domain.ClockTime
	Policy        domain.CapacityPolicy
	OccupantCount int
	IsAvailable   bool
	// OccupantBreakdown counts occupants per lead class. Only set for shared slots.
	OccupantBreakdown map[string]int
	// SameClassCount is the number of occupants sharing the requested lead class.
	SameClassCount int
}

// Resolver answers availability queries. It holds no state between calls.
type Resolver struct {
	catalog  Catalog
	bookings Repository
	location *time.Location
}

// New creates a resolver. loc applies to templates without their own timezone.
func New(catalog Catalog, bookings Repository, loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{catalog: catalog, bookings: bookings, location: loc}
}

// Location returns the fallback scheduling location.
func (r *Resolver) Location() *time.Location { return r.location }

// Resolve lists the closer's template times for date and category in template
// order. No templates yields an empty list, which means "no configured hours"
// rather than "fully booked". An unknown closer is a NotFound error.
func (r *Resolver) Resolve(ctx context.Context, closerID uuid.UUID, date domain.Date, category domain.Category, leadClass string) ([]SlotAvailability, error) {
	if _, err := r.catalog.GetCloser(ctx, closerID); err != nil {
		return nil, err
	}
	return r.resolveDay(ctx, closerID, date, category, leadClass)
}

func (r *Resolver) resolveDay(ctx context.Context, closerID uuid.UUID, date domain.Date, category domain.Category, leadClass string) ([]SlotAvailability, error) {
	templates, err := r.catalog.TemplatesFor(ctx, closerID, date.Weekday(), category)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot templates: %w", err)
	}
	if len(templates) == 0 {
		return []SlotAvailability{}, nil
	}

	from, to := r.dayWindow(date, templates)
	occupying, err := r.bookings.ListOccupying(ctx, closerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}

	byTime := make(map[int64][]domain.Booking, len(occupying))
	for _, b := range occupying {
		if !b.Occupies() {
			continue
		}
		key := b.ScheduledAt.UnixNano()
		byTime[key] = append(byTime[key], b)
	}

	slots := make([]SlotAvailability, 0, len(templates))
	for _, t := range templates {
		at := t.InstantOn(date, r.location)
		occupants := byTime[at.UnixNano()]

		slot := SlotAvailability{
			Time:          at,
			StartTime:     t.StartTime,
			Policy:        t.Policy,
			OccupantCount: len(occupants),
			IsAvailable:   t.Policy.IsAvailable(len(occupants)),
		}
		if t.Policy.Kind() == domain.PolicyShared {
			slot.OccupantBreakdown = breakdown(occupants)
			if leadClass != "" {
				slot.SameClassCount = slot.OccupantBreakdown[leadClass]
			}
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// SlotAt returns the availability of the template time exactly matching at,
// or false when no template of the closer starts then.
func (r *Resolver) SlotAt(ctx context.Context, closerID uuid.UUID, category domain.Category, at time.Time) (SlotAvailability, bool, error) {
	// the instant's calendar day depends on the template timezone, so check
	// the neighbouring days as well
	for _, offset := range []int{0, -1, 1} {
		date := domain.DateOf(at.In(r.location)).AddDays(offset)
		slots, err := r.resolveDay(ctx, closerID, date, category, "")
		if err != nil {
			return SlotAvailability{}, false, err
		}
		for _, slot := range slots {
			if slot.Time.Equal(at) {
				return slot, true, nil
			}
		}
	}
	return SlotAvailability{}, false, nil
}

// DaySlots is the availability of one closer on one day.
type DaySlots struct {
	Date  domain.Date
	Slots []SlotAvailability
}

// ResolveRange resolves days consecutive dates starting at start.
func (r *Resolver) ResolveRange(ctx context.Context, closerID uuid.UUID, start domain.Date, days int, category domain.Category) ([]DaySlots, error) {
	out := make([]DaySlots, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDays(i)
		slots, err := r.resolveDay(ctx, closerID, date, category, "")
		if err != nil {
			return nil, err
		}
		out = append(out, DaySlots{Date: date, Slots: slots})
	}
	return out, nil
}

// dayWindow covers the day in every timezone used by the templates.
func (r *Resolver) dayWindow(date domain.Date, templates []domain.SlotTemplate) (time.Time, time.Time) {
	var from, to time.Time
	for i, t := range templates {
		start, end := date.Bounds(t.Location(r.location))
		if i == 0 || start.Before(from) {
			from = start
		}
		if i == 0 || end.After(to) {
			to = end
		}
	}
	return from, to
}

func breakdown(occupants []domain.Booking) map[string]int {
	counts := make(map[string]int)
	for _, b := range occupants {
		class := b.LeadClass
		if class == "" {
			class = UnclassifiedLeadClass
		}
		counts[class]++
	}
	return counts
}
