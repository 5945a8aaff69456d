// Package duplicates decides whether a lead may be booked again in a category.
package duplicates

import (
	"context"
	"fmt"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"

	"github.com/google/uuid"
)

// BlockType explains a block decision.
type BlockType string

const (
	BlockNone     BlockType = "none"
	BlockActive   BlockType = "active"
	BlockCooldown BlockType = "cooldown"
)

// Decision is the guard's advisory verdict.
type Decision struct {
	Blocked   bool
	BlockType BlockType
	Reason    string
	// Existing is the booking that caused the block.
	Existing *domain.Booking
	// RemainingCooldown is set for cooldown blocks.
	RemainingCooldown time.Duration
}

// Repository defines the booking reads needed by the guard.
type Repository interface {
	FindActiveForLead(ctx context.Context, leadID uuid.UUID, category domain.Category) (*domain.Booking, error)
	FindLatestCompletedForLead(ctx context.Context, leadID uuid.UUID, category domain.Category) (*domain.Booking, error)
}

// Guard checks leads for active bookings and post-completion cooldowns.
// Its verdict is advisory; the storage layer does not enforce it.
type Guard struct {
	repo     Repository
	policies domain.CategoryPolicies
	now      func() time.Time
}

// New creates a guard.
func New(repo Repository, policies domain.CategoryPolicies) *Guard {
	return &Guard{repo: repo, policies: policies, now: time.Now}
}

// WithClock replaces the time source.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// Check returns whether leadID is blocked from a new booking in category.
// Any capacity-holding booking blocks first. Otherwise the latest completed
// booking decides the cooldown, so a newer cancelled or no-show booking does
// not lift it.
func (g *Guard) Check(ctx context.Context, leadID uuid.UUID, category domain.Category) (Decision, error) {
	active, err := g.repo.FindActiveForLead(ctx, leadID, category)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check active bookings: %w", err)
	}
	if active != nil {
		return Decision{
			Blocked:   true,
			BlockType: BlockActive,
			Reason: fmt.Sprintf("lead already has a %s meeting on %s with closer %s",
				category, active.ScheduledAt.UTC().Format(time.RFC3339), active.CloserID),
			Existing: active,
		}, nil
	}

	completed, err := g.repo.FindLatestCompletedForLead(ctx, leadID, category)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check completed bookings: %w", err)
	}
	if completed != nil && completed.CompletedAt != nil {
		cooldown := g.policies.For(category).Cooldown
		elapsed := g.now().Sub(*completed.CompletedAt)
		if cooldown > 0 && elapsed < cooldown {
			remaining := cooldown - elapsed
			return Decision{
				Blocked:   true,
				BlockType: BlockCooldown,
				Reason: fmt.Sprintf("lead completed a %s meeting recently; wait %s before booking again",
					category, formatWait(remaining)),
				Existing:          completed,
				RemainingCooldown: remaining,
			}, nil
		}
	}

	return Decision{Blocked: false, BlockType: BlockNone}, nil
}

func formatWait(d time.Duration) string {
	d = d.Round(time.Minute)
	days := d / (24 * time.Hour)
	hours := (d % (24 * time.Hour)) / time.Hour
	minutes := (d % time.Hour) / time.Minute
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
