// Package domain holds the scheduling model: meeting categories, capacity
// policies, the booking state machine and the booking aggregate.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// Category is a meeting stage. The zero value is invalid.
type Category struct {
	code string
}

var (
	// FirstMeeting is the first-stage (r1) meeting.
	FirstMeeting = Category{code: "r1"}
	// SecondMeeting is the second-stage (r2) meeting.
	SecondMeeting = Category{code: "r2"}
)

// AllCategories lists every known category in stage order.
func AllCategories() []Category {
	return []Category{FirstMeeting, SecondMeeting}
}

// ParseCategory accepts "r1"/"r2" case-insensitively.
func ParseCategory(raw string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case FirstMeeting.code:
		return FirstMeeting, nil
	case SecondMeeting.code:
		return SecondMeeting, nil
	default:
		return Category{}, fmt.Errorf("unknown meeting category %q", raw)
	}
}

func (c Category) String() string { return c.code }

// IsZero reports whether c is the unset category.
func (c Category) IsZero() bool { return c.code == "" }

// CategoryPolicy holds per-category rules.
type CategoryPolicy struct {
	// Cooldown is the wait after a completed meeting before the same lead
	// may be booked again in this category.
	Cooldown time.Duration
	// AllowsContract permits completed -> contract_finalized.
	AllowsContract bool
}

// CategoryPolicies maps each category to its rules.
type CategoryPolicies map[Category]CategoryPolicy

// DefaultCategoryPolicies builds the policy table with the configured cooldowns.
// Only second-stage meetings close contracts.
func DefaultCategoryPolicies(firstCooldown, secondCooldown time.Duration) CategoryPolicies {
	return CategoryPolicies{
		FirstMeeting:  {Cooldown: firstCooldown, AllowsContract: false},
		SecondMeeting: {Cooldown: secondCooldown, AllowsContract: true},
	}
}

// For returns the policy for c, or the zero policy when c is unknown.
func (p CategoryPolicies) For(c Category) CategoryPolicy {
	return p[c]
}
