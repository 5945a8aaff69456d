package duplicates

import (
	"context"
	"testing"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(leadID uuid.UUID, category domain.Category, at time.Time, status domain.Status) domain.Booking {
	return domain.Booking{
		ID:          uuid.New(),
		LeadID:      leadID,
		CloserID:    uuid.New(),
		Category:    category,
		ScheduledAt: at,
		BookedAt:    at.Add(-72 * time.Hour),
		Status:      status,
		Policy:      domain.ExclusivePolicy{},
		Version:     1,
	}
}

func TestCheckBlocksActiveBooking(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	lead := uuid.New()

	require.NoError(t, store.InsertBooking(ctx, newBooking(lead, domain.SecondMeeting, now.Add(7*24*time.Hour), domain.StatusScheduled)))

	guard := New(store, domain.DefaultCategoryPolicies(72*time.Hour, 72*time.Hour)).WithClock(func() time.Time { return now })
	decision, err := guard.Check(ctx, lead, domain.SecondMeeting)
	require.NoError(t, err)

	assert.True(t, decision.Blocked)
	assert.Equal(t, BlockActive, decision.BlockType)
	assert.NotNil(t, decision.Existing)

	other, err := guard.Check(ctx, lead, domain.FirstMeeting)
	require.NoError(t, err)
	assert.False(t, other.Blocked, "blocks are per category")
}

func TestCheckCooldownWindow(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	lead := uuid.New()
	completedAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	b := newBooking(lead, domain.FirstMeeting, completedAt.Add(-time.Hour), domain.StatusCompleted)
	b.CompletedAt = &completedAt
	require.NoError(t, store.InsertBooking(ctx, b))

	policies := domain.DefaultCategoryPolicies(3*24*time.Hour, 3*24*time.Hour)

	dayTwo := New(store, policies).WithClock(func() time.Time { return completedAt.Add(2 * 24 * time.Hour) })
	decision, err := dayTwo.Check(ctx, lead, domain.FirstMeeting)
	require.NoError(t, err)
	assert.True(t, decision.Blocked)
	assert.Equal(t, BlockCooldown, decision.BlockType)
	assert.Equal(t, 24*time.Hour, decision.RemainingCooldown)
	assert.Contains(t, decision.Reason, "1d 0h")

	dayFour := New(store, policies).WithClock(func() time.Time { return completedAt.Add(4 * 24 * time.Hour) })
	decision, err = dayFour.Check(ctx, lead, domain.FirstMeeting)
	require.NoError(t, err)
	assert.False(t, decision.Blocked)
	assert.Equal(t, BlockNone, decision.BlockType)
}

func TestCheckIgnoresCancelledAndNoShow(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	lead := uuid.New()
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertBooking(ctx, newBooking(lead, domain.FirstMeeting, at, domain.StatusCancelled)))
	require.NoError(t, store.InsertBooking(ctx, newBooking(lead, domain.FirstMeeting, at.Add(time.Hour), domain.StatusNoShow)))

	decision, err := New(store, domain.DefaultCategoryPolicies(time.Hour, time.Hour)).Check(ctx, lead, domain.FirstMeeting)
	require.NoError(t, err)
	assert.False(t, decision.Blocked)
}

func TestCheckCooldownSurvivesLaterCancellation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	lead := uuid.New()
	completedAt := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	done := newBooking(lead, domain.FirstMeeting, completedAt.Add(-time.Hour), domain.StatusCompleted)
	done.CompletedAt = &completedAt
	require.NoError(t, store.InsertBooking(ctx, done))
	require.NoError(t, store.InsertBooking(ctx, newBooking(lead, domain.FirstMeeting, completedAt.Add(3*24*time.Hour), domain.StatusCancelled)))

	guard := New(store, domain.DefaultCategoryPolicies(7*24*time.Hour, 7*24*time.Hour)).
		WithClock(func() time.Time { return completedAt.Add(24 * time.Hour) })
	decision, err := guard.Check(ctx, lead, domain.FirstMeeting)
	require.NoError(t, err)

	assert.True(t, decision.Blocked)
	assert.Equal(t, BlockCooldown, decision.BlockType)
	require.NotNil(t, decision.Existing)
	assert.Equal(t, done.ID, decision.Existing.ID)
}
