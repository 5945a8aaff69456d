// Package catalog serves the closer roster and weekly slot templates.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"closer_scheduling_backend/internal/scheduling/domain"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Repository defines the data access needed by the catalog.
type Repository interface {
	GetCloser(ctx context.Context, id uuid.UUID) (domain.Closer, error)
	ListClosers(ctx context.Context) ([]domain.Closer, error)
	ListTemplates(ctx context.Context, closerID uuid.UUID, weekday time.Weekday, category domain.Category) ([]domain.SlotTemplate, error)
}

const rosterKey = "roster"

// Service is the read side of the slot catalog. Results are cached for a
// short TTL; only catalog data is cached, never booking state. Returned
// slices are shared with the cache and must not be modified.
type Service struct {
	repo  Repository
	cache *gocache.Cache
}

// New creates a catalog service. A ttl <= 0 disables caching.
func New(repo Repository, ttl time.Duration) *Service {
	s := &Service{repo: repo}
	if ttl > 0 {
		s.cache = gocache.New(ttl, 2*ttl)
	}
	return s
}

// GetCloser returns the closer or an apperr NotFound.
func (s *Service) GetCloser(ctx context.Context, id uuid.UUID) (domain.Closer, error) {
	key := "closer:" + id.String()
	if cached, ok := s.lookup(key); ok {
		return cached.(domain.Closer), nil
	}
	closer, err := s.repo.GetCloser(ctx, id)
	if err != nil {
		return domain.Closer{}, err
	}
	s.store(key, closer)
	return closer, nil
}

// TemplatesFor returns the templates of one closer for a weekday and category,
// ordered by start time.
func (s *Service) TemplatesFor(ctx context.Context, closerID uuid.UUID, weekday time.Weekday, category domain.Category) ([]domain.SlotTemplate, error) {
	key := fmt.Sprintf("templates:%s:%d:%s", closerID, weekday, category)
	if cached, ok := s.lookup(key); ok {
		return cached.([]domain.SlotTemplate), nil
	}

	templates, err := s.repo.ListTemplates(ctx, closerID, weekday, category)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(templates, func(i, j int) bool {
		return templates[i].StartTime.Before(templates[j].StartTime)
	})
	s.store(key, templates)
	return templates, nil
}

// ListClosers returns the full roster ordered by id.
func (s *Service) ListClosers(ctx context.Context) ([]domain.Closer, error) {
	if cached, ok := s.lookup(rosterKey); ok {
		return cached.([]domain.Closer), nil
	}
	closers, err := s.repo.ListClosers(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(closers, func(i, j int) bool {
		return closers[i].ID.String() < closers[j].ID.String()
	})
	s.store(rosterKey, closers)
	return closers, nil
}

// ListEligibleClosers returns active closers serving category, ordered by id.
func (s *Service) ListEligibleClosers(ctx context.Context, category domain.Category) ([]domain.Closer, error) {
	closers, err := s.ListClosers(ctx)
	if err != nil {
		return nil, err
	}
	eligible := make([]domain.Closer, 0, len(closers))
	for _, c := range closers {
		if c.Active && c.Serves(category) {
			eligible = append(eligible, c)
		}
	}
	return eligible, nil
}

// Invalidate drops all cached catalog data.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

func (s *Service) lookup(key string) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Service) store(key string, value interface{}) {
	if s.cache != nil {
		s.cache.SetDefault(key, value)
	}
}
