package booking

import (
	"context"
	"strings"

	"closer_scheduling_backend/internal/events"
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/platform/apperr"

	"github.com/google/uuid"
)

func (s *Service) publishTransition(ctx context.Context, b domain.Booking, from, to, actor, note string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.BookingTransitioned{
		BaseEvent:  events.NewBaseEventAt(s.now()),
		BookingID:  b.ID,
		LeadID:     b.LeadID,
		CloserID:   b.CloserID,
		Category:   b.Category.String(),
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Note:       note,
	})
}

func (s *Service) publishNotification(ctx context.Context, b domain.Booking, kind, actor string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.BookingNotificationRequested{
		BaseEvent:   events.NewBaseEventAt(s.now()),
		Kind:        kind,
		BookingID:   b.ID,
		LeadID:      b.LeadID,
		CloserID:    b.CloserID,
		Category:    b.Category.String(),
		ScheduledAt: b.ScheduledAt,
		Actor:       actor,
	})
}

// scopedKey namespaces a client idempotency key per operation and actor so
// the same header value on different endpoints or from different callers
// never collides.
func scopedKey(scope, actor, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if actor = strings.TrimSpace(actor); actor != "" {
		return scope + ":" + actor + ":" + key
	}
	return scope + ":" + key
}

func optionalKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}

func replayResult(b *domain.Booking) Result {
	if b == nil {
		return Result{}
	}
	return Result{Outcome: OutcomeReplayed, Booking: b}
}

// replay returns the booking a completed request with key produced, if any.
func (s *Service) replay(ctx context.Context, key string) (*domain.Booking, error) {
	if key == "" {
		return nil, nil
	}
	if s.idem != nil {
		id, done, err := s.idem.Lookup(ctx, key)
		if err != nil {
			s.log.WithContext(ctx).Warn("idempotency lookup failed", "error", err)
		} else if done {
			b, err := s.store.GetBooking(ctx, id)
			if err == nil {
				return &b, nil
			}
			if !apperr.Is(err, apperr.KindNotFound) {
				return nil, err
			}
		}
	}
	return s.store.GetBookingByIdempotencyKey(ctx, key)
}

// reserve claims key for this request. The returned func releases an
// unfinished claim so the caller can retry after a rejection.
func (s *Service) reserve(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if key == "" || s.idem == nil {
		return noop, nil
	}
	ok, err := s.idem.Reserve(ctx, key)
	if err != nil {
		s.log.WithContext(ctx).Warn("idempotency reserve failed; relying on storage constraint", "error", err)
		return noop, nil
	}
	if !ok {
		return nil, apperr.ConcurrencyConflict("a request with this idempotency key is still in progress")
	}
	return func() {
		if err := s.idem.Release(context.WithoutCancel(ctx), key); err != nil {
			s.log.WithContext(ctx).Warn("idempotency release failed", "error", err)
		}
	}, nil
}

func (s *Service) complete(ctx context.Context, key string, id uuid.UUID) {
	if key == "" || s.idem == nil {
		return
	}
	if err := s.idem.Complete(context.WithoutCancel(ctx), key, id); err != nil {
		s.log.WithContext(ctx).Warn("idempotency completion failed", "error", err)
	}
}
