package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"closer_scheduling_backend/internal/events"
	"closer_scheduling_backend/internal/scheduling/availability"
	"closer_scheduling_backend/internal/scheduling/catalog"
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/duplicates"
	"closer_scheduling_backend/internal/scheduling/memstore"
	"closer_scheduling_backend/platform/apperr"
	"closer_scheduling_backend/platform/idempotency"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 4 May 2026, 08:00 UTC.
var testNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func at(day, hour int) time.Time {
	return time.Date(2026, 5, day, hour, 0, 0, 0, time.UTC)
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, e := range b.published {
		out = append(out, e.EventName())
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *memstore.Store
	bus    *recordingBus
	closer uuid.UUID
	other  uuid.UUID
}

// newFixture seeds two closers with daily r1 slots at 09:00 and 10:00
// (exclusive) and 16:00 (shared) and a daily r2 slot at 14:00 (exclusive).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	for _, closerID := range ids {
		require.NoError(t, store.UpsertCloser(ctx, domain.Closer{
			ID:          closerID,
			DisplayName: "Closer " + closerID.String()[:8],
			Active:      true,
			Categories:  []domain.Category{domain.FirstMeeting, domain.SecondMeeting},
		}))

		var templates []domain.SlotTemplate
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			templates = append(templates,
				domain.SlotTemplate{CloserID: closerID, Weekday: wd, Category: domain.FirstMeeting, StartTime: domain.ClockTime{Hour: 9}, Policy: domain.ExclusivePolicy{}},
				domain.SlotTemplate{CloserID: closerID, Weekday: wd, Category: domain.FirstMeeting, StartTime: domain.ClockTime{Hour: 10}, Policy: domain.ExclusivePolicy{}},
				domain.SlotTemplate{CloserID: closerID, Weekday: wd, Category: domain.FirstMeeting, StartTime: domain.ClockTime{Hour: 16}, Policy: domain.SharedPolicy{}},
				domain.SlotTemplate{CloserID: closerID, Weekday: wd, Category: domain.SecondMeeting, StartTime: domain.ClockTime{Hour: 14}, Policy: domain.ExclusivePolicy{}},
			)
		}
		require.NoError(t, store.ReplaceTemplates(ctx, closerID, templates))
	}

	policies := domain.DefaultCategoryPolicies(7*24*time.Hour, 14*24*time.Hour)
	cat := catalog.New(store, time.Minute)
	resolver := availability.New(cat, store, time.UTC)
	guard := duplicates.New(store, policies).WithClock(func() time.Time { return testNow })
	bus := &recordingBus{}

	svc := New(store, cat, resolver, guard, policies, bus, nil).WithClock(func() time.Time { return testNow })
	return &fixture{svc: svc, store: store, bus: bus, closer: ids[0], other: ids[1]}
}

func (f *fixture) create(t *testing.T, lead uuid.UUID, category domain.Category, when time.Time) Result {
	t.Helper()
	res, err := f.svc.Create(context.Background(), CreateInput{
		LeadID:      lead,
		CloserID:    f.closer,
		Category:    category,
		ScheduledAt: when,
		Actor:       "agent@example.com",
	})
	require.NoError(t, err)
	return res
}

func TestCreateExclusiveSlotAcceptsOneBooking(t *testing.T) {
	f := newFixture(t)

	first := f.create(t, uuid.New(), domain.FirstMeeting, at(4, 10))
	require.Equal(t, OutcomeCreated, first.Outcome)
	assert.Equal(t, domain.StatusScheduled, first.Booking.Status)
	assert.Equal(t, testNow, first.Booking.BookedAt)
	assert.Equal(t, 1, first.Booking.Version)

	secondLead := uuid.New()
	second := f.create(t, secondLead, domain.FirstMeeting, at(4, 10))
	assert.Equal(t, OutcomeCapacityExceeded, second.Outcome)
	assert.Nil(t, second.Booking)
	assert.NotEmpty(t, second.Reason)

	third := f.create(t, secondLead, domain.FirstMeeting, at(4, 9))
	assert.Equal(t, OutcomeCreated, third.Outcome)
}

func TestCreateSharedSlotAcceptsMany(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		res := f.create(t, uuid.New(), domain.FirstMeeting, at(4, 16))
		require.Equal(t, OutcomeCreated, res.Outcome)
		assert.Equal(t, domain.PolicyShared, res.Booking.Policy.Kind())
	}
}

func TestConcurrentCreatesOnExclusiveSlot(t *testing.T) {
	f := newFixture(t)
	const callers = 24

	var wg sync.WaitGroup
	outcomes := make(chan Outcome, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Create(context.Background(), CreateInput{
				LeadID:      uuid.New(),
				CloserID:    f.closer,
				Category:    domain.SecondMeeting,
				ScheduledAt: at(5, 14),
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	created := 0
	for outcome := range outcomes {
		switch outcome {
		case OutcomeCreated:
			created++
		case OutcomeCapacityExceeded:
		default:
			t.Fatalf("unexpected outcome %s", outcome)
		}
	}
	assert.Equal(t, 1, created)
}

func TestCreateValidatesBookedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	future := testNow.Add(time.Hour)
	_, err := f.svc.Create(ctx, CreateInput{
		LeadID: uuid.New(), CloserID: f.closer, Category: domain.FirstMeeting,
		ScheduledAt: at(5, 10), BookedAt: &future,
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	// a past meeting without an explicit earlier bookedAt
	_, err = f.svc.Create(ctx, CreateInput{
		LeadID: uuid.New(), CloserID: f.closer, Category: domain.FirstMeeting,
		ScheduledAt: at(1, 10),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateRetroactiveEntry(t *testing.T) {
	f := newFixture(t)

	bookedAt := at(1, 8)
	res, err := f.svc.Create(context.Background(), CreateInput{
		LeadID: uuid.New(), CloserID: f.closer, Category: domain.FirstMeeting,
		ScheduledAt: at(1, 10), BookedAt: &bookedAt,
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, bookedAt, res.Booking.BookedAt)
}

func TestCreateRejectsUnknownCloserAndOffTemplateTimes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{
		LeadID: uuid.New(), CloserID: uuid.New(), Category: domain.FirstMeeting, ScheduledAt: at(5, 10),
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = f.svc.Create(ctx, CreateInput{
		LeadID: uuid.New(), CloserID: f.closer, Category: domain.FirstMeeting, ScheduledAt: at(5, 11),
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.svc.Create(ctx, CreateInput{CloserID: f.closer})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateDuplicateGuardAndOverride(t *testing.T) {
	f := newFixture(t)
	lead := uuid.New()

	require.Equal(t, OutcomeCreated, f.create(t, lead, domain.FirstMeeting, at(5, 10)).Outcome)

	blocked := f.create(t, lead, domain.FirstMeeting, at(6, 10))
	assert.Equal(t, OutcomeDuplicateBlocked, blocked.Outcome)
	require.NotNil(t, blocked.Duplicate)
	assert.Equal(t, duplicates.BlockActive, blocked.Duplicate.BlockType)

	overridden, err := f.svc.Create(context.Background(), CreateInput{
		LeadID: lead, CloserID: f.closer, Category: domain.FirstMeeting, ScheduledAt: at(6, 10),
		Override: true, Actor: "admin@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, overridden.Outcome)
	require.Len(t, overridden.Booking.History, 1)
	assert.Equal(t, domain.HistoryNote, overridden.Booking.History[0].Kind)
}

func TestNoShowRescheduleBuildsLineage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := uuid.New()

	b1 := f.create(t, lead, domain.FirstMeeting, at(4, 10)).Booking
	_, err := f.svc.TransitionStatus(ctx, TransitionInput{BookingID: b1.ID, Status: domain.StatusNoShow, Actor: "closer"})
	require.NoError(t, err)

	res, err := f.svc.Reschedule(ctx, RescheduleInput{
		BookingID: b1.ID, NewScheduledAt: at(6, 9), NewCloserID: &f.other,
		Note: "lead asked for Wednesday", Actor: "agent",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, res.Outcome)
	b2 := res.Booking

	require.NotNil(t, b2.ParentBookingID)
	assert.Equal(t, b1.ID, *b2.ParentBookingID)
	assert.Equal(t, f.other, b2.CloserID)
	assert.Equal(t, domain.StatusScheduled, b2.Status)
	require.NotEmpty(t, b2.History)
	assert.Equal(t, domain.HistoryRescheduled, b2.History[len(b2.History)-1].Kind)

	original, err := f.svc.Get(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRescheduled, original.Status)

	chain, err := f.svc.Lineage(ctx, b2.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, b1.ID, chain[0].ID)
	assert.Equal(t, b2.ID, chain[1].ID)
}

func TestRescheduleIntoTakenSlotLeavesOriginalUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, uuid.New(), domain.FirstMeeting, at(5, 10))
	mine := f.create(t, uuid.New(), domain.FirstMeeting, at(6, 10)).Booking

	res, err := f.svc.Reschedule(ctx, RescheduleInput{BookingID: mine.ID, NewScheduledAt: at(5, 10)})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCapacityExceeded, res.Outcome)

	after, err := f.svc.Get(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, after.Status)
	assert.Equal(t, mine.Version, after.Version)
	assert.Len(t, f.store.Bookings(), 2)
}

func TestRescheduleInPlaceAppendsNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, uuid.New(), domain.FirstMeeting, at(5, 16)).Booking

	class := "premium"
	res, err := f.svc.Reschedule(ctx, RescheduleInput{
		BookingID: b.ID, NewScheduledAt: b.ScheduledAt, LeadClass: &class, Note: "prefers video call", Actor: "agent",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, b.ID, res.Booking.ID)
	assert.Equal(t, "premium", res.Booking.LeadClass)
	assert.Contains(t, res.Booking.NotesView(), "prefers video call")
	assert.Len(t, f.store.Bookings(), 1)
}

func TestRescheduleRejectsTerminalBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, uuid.New(), domain.FirstMeeting, at(5, 10)).Booking

	_, err := f.svc.TransitionStatus(ctx, TransitionInput{BookingID: b.ID, Status: domain.StatusCancelled})
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, RescheduleInput{BookingID: b.ID, NewScheduledAt: at(6, 10)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRescheduleKeepsCompletedBookingInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, uuid.New(), domain.FirstMeeting, at(4, 10)).Booking

	_, err := f.svc.TransitionStatus(ctx, TransitionInput{BookingID: b.ID, Status: domain.StatusCompleted})
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, RescheduleInput{BookingID: b.ID, NewScheduledAt: at(6, 10)})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "cannot be moved")

	res, err := f.svc.Reschedule(ctx, RescheduleInput{BookingID: b.ID, NewScheduledAt: b.ScheduledAt, Note: "sent recap", Actor: "closer"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, domain.StatusCompleted, res.Booking.Status)
	assert.Len(t, f.store.Bookings(), 1)
}

func TestTransitionRetriesOnceOnStaleWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, uuid.New(), domain.FirstMeeting, at(5, 10)).Booking

	f.store.InjectStaleWrites(1)
	updated, err := f.svc.TransitionStatus(ctx, TransitionInput{BookingID: b.ID, Status: domain.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, updated.Status)

	f.store.InjectStaleWrites(2)
	_, err = f.svc.TransitionStatus(ctx, TransitionInput{BookingID: b.ID, Status: domain.StatusCompleted})
	assert.True(t, apperr.Is(err, apperr.KindConcurrencyConflict))
}

func TestTransitionCompletedSetsCompletedAtAndFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, uuid.New(), domain.FirstMeeting, at(5, 10)).Booking

	done, err := f.svc.TransitionStatus(ctx, TransitionInput{BookingID: b.ID, Status: domain.StatusCompleted})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, testNow, *done.CompletedAt)

	_, err = f.svc.TransitionStatus(ctx, TransitionInput{BookingID: b.ID, Status: domain.StatusContractFinalized})
	assert.True(t, apperr.Is(err, apperr.KindValidation), "first meetings never carry a contract")

	again := f.create(t, uuid.New(), domain.FirstMeeting, at(5, 10))
	assert.Equal(t, OutcomeCreated, again.Outcome)
}

func TestIdempotentCreateReplaysFromStorage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := CreateInput{
		LeadID: uuid.New(), CloserID: f.closer, Category: domain.FirstMeeting,
		ScheduledAt: at(5, 10), IdempotencyKey: "req-1",
	}

	first, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, first.Outcome)

	second, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, second.Outcome)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Len(t, f.store.Bookings(), 1)
}

func TestIdempotentCreateWithRedis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.svc.SetIdempotencyStore(idempotency.NewRedisStore(client, time.Hour))

	in := CreateInput{
		LeadID: uuid.New(), CloserID: f.closer, Category: domain.SecondMeeting,
		ScheduledAt: at(5, 14), IdempotencyKey: "req-2",
	}
	first, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, first.Outcome)

	second, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, second.Outcome)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)

	// a rejected request releases its key
	taken := in
	taken.LeadID = uuid.New()
	taken.IdempotencyKey = "req-3"
	res, err := f.svc.Create(ctx, taken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCapacityExceeded, res.Outcome)
	assert.False(t, mr.Exists("idem:create:req-3"))
}

func TestIdempotentRescheduleReplaysAfterMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, uuid.New(), domain.FirstMeeting, at(5, 10)).Booking
	in := RescheduleInput{BookingID: b.ID, NewScheduledAt: at(6, 10), Actor: "agent", IdempotencyKey: "retry-1"}

	first, err := f.svc.Reschedule(ctx, in)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, first.Outcome)

	second, err := f.svc.Reschedule(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, second.Outcome)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Len(t, f.store.Bookings(), 2)

	// a fresh key still sees the terminal original
	in.IdempotencyKey = "retry-2"
	_, err = f.svc.Reschedule(ctx, in)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestIdempotentRescheduleWithRedis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.svc.SetIdempotencyStore(idempotency.NewRedisStore(client, time.Hour))

	b := f.create(t, uuid.New(), domain.SecondMeeting, at(5, 14)).Booking
	in := RescheduleInput{BookingID: b.ID, NewScheduledAt: at(6, 14), NewCloserID: &f.other, Actor: "agent", IdempotencyKey: "retry-1"}

	first, err := f.svc.Reschedule(ctx, in)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, first.Outcome)
	assert.True(t, mr.Exists("idem:reschedule:"+b.ID.String()+":agent:retry-1"))

	second, err := f.svc.Reschedule(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, second.Outcome)
	assert.Equal(t, first.Booking.ID, second.Booking.ID)
	assert.Equal(t, f.other, second.Booking.CloserID)
}

func TestIdempotencyKeysAreScopedPerActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine, err := f.svc.Create(ctx, CreateInput{
		LeadID: uuid.New(), CloserID: f.closer, Category: domain.FirstMeeting,
		ScheduledAt: at(5, 9), Actor: "alice@example.com", IdempotencyKey: "shared-key",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, mine.Outcome)

	theirs, err := f.svc.Create(ctx, CreateInput{
		LeadID: uuid.New(), CloserID: f.closer, Category: domain.FirstMeeting,
		ScheduledAt: at(5, 10), Actor: "bob@example.com", IdempotencyKey: "shared-key",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, theirs.Outcome)
	assert.NotEqual(t, mine.Booking.ID, theirs.Booking.ID)
	assert.Len(t, f.store.Bookings(), 2)

	again, err := f.svc.Create(ctx, CreateInput{
		LeadID: mine.Booking.LeadID, CloserID: f.closer, Category: domain.FirstMeeting,
		ScheduledAt: at(5, 9), Actor: "alice@example.com", IdempotencyKey: "shared-key",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeReplayed, again.Outcome)
	assert.Equal(t, mine.Booking.ID, again.Booking.ID)
}

func TestCreateRejectsParentWithSuccessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lead := uuid.New()

	root := f.create(t, lead, domain.FirstMeeting, at(4, 10)).Booking
	_, err := f.svc.TransitionStatus(ctx, TransitionInput{BookingID: root.ID, Status: domain.StatusNoShow})
	require.NoError(t, err)

	followUp, err := f.svc.Create(ctx, CreateInput{
		LeadID: lead, CloserID: f.closer, Category: domain.FirstMeeting,
		ScheduledAt: at(6, 9), ParentBookingID: &root.ID,
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, followUp.Outcome)

	_, err = f.svc.Create(ctx, CreateInput{
		LeadID: lead, CloserID: f.closer, Category: domain.FirstMeeting,
		ScheduledAt: at(6, 10), ParentBookingID: &root.ID, Override: true,
	})
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "already has a successor")

	_, err = f.svc.Reschedule(ctx, RescheduleInput{BookingID: root.ID, NewScheduledAt: at(7, 10)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	chain, err := f.svc.Lineage(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, followUp.Booking.ID, chain[1].ID)
	assert.Len(t, f.store.Bookings(), 2)
}

func TestRemoveDetachesSuccessor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b1 := f.create(t, uuid.New(), domain.FirstMeeting, at(5, 10)).Booking

	res, err := f.svc.Reschedule(ctx, RescheduleInput{BookingID: b1.ID, NewScheduledAt: at(6, 10)})
	require.NoError(t, err)

	_, err = f.svc.Remove(ctx, b1.ID, "admin")
	require.NoError(t, err)

	successor, err := f.svc.Get(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Nil(t, successor.ParentBookingID)

	_, err = f.svc.Get(ctx, b1.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMutationsPublishEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, uuid.New(), domain.FirstMeeting, at(5, 10)).Booking

	_, err := f.svc.TransitionStatus(ctx, TransitionInput{BookingID: b.ID, Status: domain.StatusCancelled})
	require.NoError(t, err)

	transitioned := events.BookingTransitioned{}.EventName()
	notification := events.BookingNotificationRequested{}.EventName()
	assert.Equal(t, []string{transitioned, notification, transitioned, notification}, f.bus.names())
}
