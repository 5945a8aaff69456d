package domain

import (
	"time"

	"github.com/google/uuid"
)

// Closer is a staff member who holds meetings with leads.
type Closer struct {
	ID          uuid.UUID
	DisplayName string
	Active      bool
	Categories  []Category
	// Specializations maps a qualification attribute to the values the closer
	// is strongest with, e.g. "income_band" -> ["high", "very_high"].
	Specializations map[string][]string
}

// Serves reports whether the closer takes meetings in c.
func (c Closer) Serves(category Category) bool {
	for _, served := range c.Categories {
		if served == category {
			return true
		}
	}
	return false
}

// SlotTemplate is one configured weekly appointment opportunity.
type SlotTemplate struct {
	ID        uuid.UUID
	CloserID  uuid.UUID
	Weekday   time.Weekday
	Category  Category
	StartTime ClockTime
	Policy    CapacityPolicy
	Timezone  string
}

// Location resolves the template timezone, falling back when it is empty or unknown.
func (t SlotTemplate) Location(fallback *time.Location) *time.Location {
	if t.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// InstantOn returns the template's start instant on day d.
func (t SlotTemplate) InstantOn(d Date, fallback *time.Location) time.Time {
	return t.StartTime.On(d, t.Location(fallback))
}
