// Package ranking scores open closer slots for a lead.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"closer_scheduling_backend/internal/scheduling/availability"
	"closer_scheduling_backend/internal/scheduling/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// Maximum contribution of each factor group. They sum to 100.
	maxSpecializationContribution = 50.0
	maxProximityContribution      = 35.0
	maxLoadContribution           = 15.0

	maxReasons = 3

	// resolveConcurrency bounds parallel per-closer availability lookups.
	resolveConcurrency = 8
)

// specializationWeights splits the specialization budget across the
// qualification attributes a closer can specialize in.
var specializationWeights = map[string]float64{
	domain.QualIncomeBand:      14,
	domain.QualPriorExperience: 10,
	domain.QualInvestmentBand:  10,
	domain.QualAssetOwnership:  8,
	domain.QualDesiredOutcome:  8,
}

var attributeLabels = map[string]string{
	domain.QualIncomeBand:      "income band",
	domain.QualPriorExperience: "prior experience",
	domain.QualInvestmentBand:  "investment band",
	domain.QualAssetOwnership:  "asset ownership",
	domain.QualDesiredOutcome:  "desired outcome",
}

// Catalog lists the closers that may take a category.
type Catalog interface {
	ListEligibleClosers(ctx context.Context, category domain.Category) ([]domain.Closer, error)
}

// Resolver produces per-day availability for one closer.
type Resolver interface {
	ResolveRange(ctx context.Context, closerID uuid.UUID, start domain.Date, days int, category domain.Category) ([]availability.DaySlots, error)
	Location() *time.Location
}

// Repository defines the booking reads needed by the ranker.
type Repository interface {
	CountUpcomingByCloser(ctx context.Context, closerIDs []uuid.UUID, from time.Time) (map[uuid.UUID]int, error)
}

// Input is a ranking request.
type Input struct {
	Qualification domain.QualificationSnapshot
	Category      domain.Category
	WindowDays    int
	// CloserIDs optionally restricts the pool.
	CloserIDs []uuid.UUID
}

// Suggestion is one scored candidate slot.
type Suggestion struct {
	Closer  domain.Closer
	Time    time.Time
	Policy  domain.CapacityPolicy
	Score   int
	Reasons []string
	Factors map[string]float64
}

// Ranker builds and orders suggestions. It is safe for concurrent use.
type Ranker struct {
	catalog  Catalog
	resolver Resolver
	repo     Repository
	now      func() time.Time
}

// New creates a ranker.
func New(catalog Catalog, resolver Resolver, repo Repository) *Ranker {
	return &Ranker{catalog: catalog, resolver: resolver, repo: repo, now: time.Now}
}

// WithClock replaces the time source.
func (r *Ranker) WithClock(now func() time.Time) *Ranker {
	r.now = now
	return r
}

type candidate struct {
	closer domain.Closer
	slot   availability.SlotAvailability
}

// Rank returns every open future slot in the window across eligible closers,
// highest score first. Ties break on the earlier time, then the closer id.
// An empty pool yields an empty list.
func (r *Ranker) Rank(ctx context.Context, in Input) ([]Suggestion, error) {
	if in.WindowDays <= 0 {
		return nil, fmt.Errorf("window must be at least one day")
	}

	closers, err := r.catalog.ListEligibleClosers(ctx, in.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible closers: %w", err)
	}
	closers = restrict(closers, in.CloserIDs)
	if len(closers) == 0 {
		return []Suggestion{}, nil
	}

	now := r.now()
	start := domain.DateOf(now.In(r.resolver.Location()))

	perCloser := make([][]candidate, len(closers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, closer := range closers {
		g.Go(func() error {
			days, err := r.resolver.ResolveRange(gctx, closer.ID, start, in.WindowDays, in.Category)
			if err != nil {
				return fmt.Errorf("failed to resolve availability for closer %s: %w", closer.ID, err)
			}
			for _, day := range days {
				for _, slot := range day.Slots {
					if slot.IsAvailable && slot.Time.After(now) {
						perCloser[i] = append(perCloser[i], candidate{closer: closer, slot: slot})
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]candidate, 0)
	for _, c := range perCloser {
		candidates = append(candidates, c...)
	}
	if len(candidates) == 0 {
		return []Suggestion{}, nil
	}

	ids := make([]uuid.UUID, 0, len(closers))
	for _, c := range closers {
		ids = append(ids, c.ID)
	}
	load, err := r.repo.CountUpcomingByCloser(ctx, ids, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load closer workload: %w", err)
	}
	maxLoad := 0
	for _, n := range load {
		if n > maxLoad {
			maxLoad = n
		}
	}

	suggestions := make([]Suggestion, 0, len(candidates))
	for _, c := range candidates {
		suggestions = append(suggestions, score(c, in.Qualification, now, load[c.closer.ID], maxLoad))
	}
	Sort(suggestions)
	return suggestions, nil
}

// Sort orders suggestions by score descending, then time, then closer id.
func Sort(suggestions []Suggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return a.Closer.ID.String() < b.Closer.ID.String()
	})
}

type factor struct {
	key    string
	value  float64
	reason string
}

func score(c candidate, qual domain.QualificationSnapshot, now time.Time, load, maxLoad int) Suggestion {
	factors := make([]factor, 0, len(specializationWeights)+2)

	for _, key := range sortedKeys(specializationWeights) {
		value, ok := qual[key]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if matches(c.closer.Specializations[key], value) {
			factors = append(factors, factor{
				key:    "specialization_" + key,
				value:  specializationWeights[key],
				reason: fmt.Sprintf("Specializes in %s %q", attributeLabels[key], value),
			})
		}
	}

	days := c.slot.Time.Sub(now).Hours() / 24
	if days < 0 {
		days = 0
	}
	proximity := maxProximityContribution / (1 + days)
	factors = append(factors, factor{key: "proximity", value: proximity, reason: proximityReason(days)})

	balance := maxLoadContribution
	if maxLoad > 0 {
		balance = maxLoadContribution * float64(maxLoad-load) / float64(maxLoad)
	}
	factors = append(factors, factor{
		key:    "load_balance",
		value:  balance,
		reason: fmt.Sprintf("Lighter upcoming schedule (%d active bookings)", load),
	})

	total := 0.0
	breakdown := make(map[string]float64, len(factors))
	for _, f := range factors {
		total += addFactor(breakdown, f.key, f.value)
	}

	return Suggestion{
		Closer:  c.closer,
		Time:    c.slot.Time,
		Policy:  c.slot.Policy,
		Score:   clampScore(total),
		Reasons: topReasons(factors),
		Factors: breakdown,
	}
}

func addFactor(factors map[string]float64, key string, value float64) float64 {
	if math.Abs(value) < 0.01 {
		return 0
	}
	factors[key] = math.Round(value*10) / 10
	return value
}

func clampScore(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// topReasons picks the reasons of the largest positive factors.
func topReasons(factors []factor) []string {
	positive := make([]factor, 0, len(factors))
	for _, f := range factors {
		if f.value >= 0.5 {
			positive = append(positive, f)
		}
	}
	sort.SliceStable(positive, func(i, j int) bool {
		if positive[i].value != positive[j].value {
			return positive[i].value > positive[j].value
		}
		return positive[i].key < positive[j].key
	})
	if len(positive) > maxReasons {
		positive = positive[:maxReasons]
	}
	reasons := make([]string, 0, len(positive))
	for _, f := range positive {
		reasons = append(reasons, f.reason)
	}
	return reasons
}

func proximityReason(days float64) string {
	switch whole := int(days); {
	case whole == 0:
		return "Available within a day"
	case whole == 1:
		return "Available tomorrow"
	default:
		return fmt.Sprintf("Available in %d days", whole)
	}
}

func matches(accepted []string, value string) bool {
	for _, a := range accepted {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

func restrict(closers []domain.Closer, ids []uuid.UUID) []domain.Closer {
	if len(ids) == 0 {
		return closers
	}
	allowed := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	out := make([]domain.Closer, 0, len(ids))
	for _, c := range closers {
		if allowed[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
