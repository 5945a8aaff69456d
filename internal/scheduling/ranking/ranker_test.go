package ranking

import (
	"context"
	"strings"
	"testing"
	"time"

	"closer_scheduling_backend/internal/scheduling/availability"
	"closer_scheduling_backend/internal/scheduling/catalog"
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 4 May 2026, 08:00 UTC.
var rankNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

type rankFixture struct {
	store  *memstore.Store
	ranker *Ranker
}

func newRankFixture(t *testing.T, closers ...domain.Closer) *rankFixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	for _, c := range closers {
		require.NoError(t, store.UpsertCloser(ctx, c))
		var templates []domain.SlotTemplate
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			templates = append(templates, domain.SlotTemplate{
				CloserID: c.ID, Weekday: wd, Category: domain.FirstMeeting,
				StartTime: domain.ClockTime{Hour: 10}, Policy: domain.ExclusivePolicy{},
			})
		}
		require.NoError(t, store.ReplaceTemplates(ctx, c.ID, templates))
	}
	cat := catalog.New(store, 0)
	resolver := availability.New(cat, store, time.UTC)
	ranker := New(cat, resolver, store).WithClock(func() time.Time { return rankNow })
	return &rankFixture{store: store, ranker: ranker}
}

func closer(id string, specializations map[string][]string) domain.Closer {
	return domain.Closer{
		ID:              uuid.MustParse(id),
		DisplayName:     id[:4],
		Active:          true,
		Categories:      []domain.Category{domain.FirstMeeting},
		Specializations: specializations,
	}
}

func TestRankPrefersSpecializationMatch(t *testing.T) {
	specialist := closer("aaaaaaaa-0000-0000-0000-000000000001", map[string][]string{
		domain.QualIncomeBand:      {"high"},
		domain.QualPriorExperience: {"yes"},
	})
	generalist := closer("bbbbbbbb-0000-0000-0000-000000000002", nil)
	f := newRankFixture(t, specialist, generalist)

	suggestions, err := f.ranker.Rank(context.Background(), Input{
		Qualification: domain.QualificationSnapshot{
			domain.QualIncomeBand:      "high",
			domain.QualPriorExperience: "yes",
		},
		Category:   domain.FirstMeeting,
		WindowDays: 3,
	})
	require.NoError(t, err)
	require.Len(t, suggestions, 6)

	top := suggestions[0]
	assert.Equal(t, specialist.ID, top.Closer.ID)
	assert.Equal(t, time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC), top.Time)
	assert.LessOrEqual(t, len(top.Reasons), 3)

	hasSpecialization := false
	for _, reason := range top.Reasons {
		if strings.HasPrefix(reason, "Specializes in") {
			hasSpecialization = true
		}
	}
	assert.True(t, hasSpecialization, "reasons: %v", top.Reasons)

	var generalistSameTime *Suggestion
	for i := range suggestions {
		if suggestions[i].Closer.ID == generalist.ID && suggestions[i].Time.Equal(top.Time) {
			generalistSameTime = &suggestions[i]
		}
	}
	require.NotNil(t, generalistSameTime)
	assert.Greater(t, top.Score, generalistSameTime.Score)

	for i := 1; i < len(suggestions); i++ {
		assert.GreaterOrEqual(t, suggestions[i-1].Score, suggestions[i].Score)
	}
}

func TestRankIsDeterministicOnTies(t *testing.T) {
	a := closer("aaaaaaaa-0000-0000-0000-000000000001", nil)
	b := closer("bbbbbbbb-0000-0000-0000-000000000002", nil)
	f := newRankFixture(t, b, a)
	in := Input{Category: domain.FirstMeeting, WindowDays: 2}

	first, err := f.ranker.Rank(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, first, 4)
	assert.Equal(t, first[0].Score, first[1].Score)
	assert.Equal(t, a.ID, first[0].Closer.ID)
	assert.Equal(t, b.ID, first[1].Closer.ID)

	for i := 0; i < 5; i++ {
		again, err := f.ranker.Rank(context.Background(), in)
		require.NoError(t, err)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].Closer.ID, again[j].Closer.ID)
			assert.Equal(t, first[j].Time, again[j].Time)
			assert.Equal(t, first[j].Score, again[j].Score)
		}
	}
}

func TestRankFavoursLighterSchedules(t *testing.T) {
	busy := closer("aaaaaaaa-0000-0000-0000-000000000001", nil)
	idle := closer("bbbbbbbb-0000-0000-0000-000000000002", nil)
	f := newRankFixture(t, busy, idle)

	// occupy busy's Tuesday slot; its Monday slot stays open
	require.NoError(t, f.store.InsertBooking(context.Background(), domain.Booking{
		ID: uuid.New(), LeadID: uuid.New(), CloserID: busy.ID, Category: domain.FirstMeeting,
		ScheduledAt: time.Date(2026, 5, 5, 10, 0, 0, 0, time.UTC), BookedAt: rankNow,
		Status: domain.StatusScheduled, Policy: domain.ExclusivePolicy{}, Version: 1,
	}))

	suggestions, err := f.ranker.Rank(context.Background(), Input{Category: domain.FirstMeeting, WindowDays: 1})
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, idle.ID, suggestions[0].Closer.ID)
	assert.Greater(t, suggestions[0].Score, suggestions[1].Score)
}

func TestRankEmptyPool(t *testing.T) {
	f := newRankFixture(t)

	suggestions, err := f.ranker.Rank(context.Background(), Input{Category: domain.SecondMeeting, WindowDays: 7})
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)

	_, err = f.ranker.Rank(context.Background(), Input{Category: domain.SecondMeeting})
	assert.Error(t, err)
}

func TestRankRestrictsToRequestedClosers(t *testing.T) {
	a := closer("aaaaaaaa-0000-0000-0000-000000000001", nil)
	b := closer("bbbbbbbb-0000-0000-0000-000000000002", nil)
	f := newRankFixture(t, a, b)

	suggestions, err := f.ranker.Rank(context.Background(), Input{
		Category: domain.FirstMeeting, WindowDays: 2, CloserIDs: []uuid.UUID{b.ID},
	})
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	for _, s := range suggestions {
		assert.Equal(t, b.ID, s.Closer.ID)
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-4))
	assert.Equal(t, 100, clampScore(130))
	assert.Equal(t, 42, clampScore(41.6))
}
