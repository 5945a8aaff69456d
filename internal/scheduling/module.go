// Package scheduling provides the closer scheduling domain module.
package scheduling

import (
	"fmt"
	"time"

	"closer_scheduling_backend/internal/events"
	apphttp "closer_scheduling_backend/internal/http"
	"closer_scheduling_backend/internal/scheduling/availability"
	"closer_scheduling_backend/internal/scheduling/booking"
	"closer_scheduling_backend/internal/scheduling/catalog"
	"closer_scheduling_backend/internal/scheduling/domain"
	"closer_scheduling_backend/internal/scheduling/duplicates"
	"closer_scheduling_backend/internal/scheduling/handler"
	"closer_scheduling_backend/internal/scheduling/ranking"
	"closer_scheduling_backend/internal/scheduling/repository"
	"closer_scheduling_backend/internal/scheduling/transport"
	"closer_scheduling_backend/platform/config"
	"closer_scheduling_backend/platform/logger"
	"closer_scheduling_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistence the module runs on. The Postgres repository and
// the in-memory store both satisfy it.
type Store interface {
	catalog.Repository
	catalog.Writer
	availability.Repository
	duplicates.Repository
	ranking.Repository
	booking.Store
}

// Module represents the scheduling domain module
type Module struct {
	handler  *handler.Handler
	catalog  *catalog.Service
	bookings *booking.Service
}

// NewModule creates a new scheduling module with all dependencies wired
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, cfg config.SchedulingConfig, log *logger.Logger) (*Module, error) {
	return NewModuleWithStore(repository.New(pool), bus, val, cfg, log)
}

// NewModuleWithStore wires the module on an arbitrary store.
func NewModuleWithStore(store Store, bus events.Bus, val *validator.Validator, cfg config.SchedulingConfig, log *logger.Logger) (*Module, error) {
	loc, err := time.LoadLocation(cfg.GetDefaultTimezone())
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduling timezone: %w", err)
	}
	if err := transport.RegisterValidations(val); err != nil {
		return nil, fmt.Errorf("failed to register scheduling validations: %w", err)
	}

	policies := domain.DefaultCategoryPolicies(cfg.GetCooldownFirstMeeting(), cfg.GetCooldownSecondMeeting())
	catalogSvc := catalog.New(store, cfg.GetCatalogCacheTTL())
	resolver := availability.New(catalogSvc, store, loc)
	guard := duplicates.New(store, policies)
	ranker := ranking.New(catalogSvc, resolver, store)
	bookings := booking.New(store, catalogSvc, resolver, guard, policies, bus, log)

	h := handler.New(handler.Deps{
		Catalog:  catalogSvc,
		Writer:   store,
		Resolver: resolver,
		Guard:    guard,
		Ranker:   ranker,
		Bookings: bookings,
		Val:      val,
		Settings: handler.Settings{
			DefaultTimezone: cfg.GetDefaultTimezone(),
			WindowDays:      cfg.GetSuggestionWindowDays(),
			MaxWindowDays:   cfg.GetSuggestionMaxWindowDays(),
		},
	})

	return &Module{handler: h, catalog: catalogSvc, bookings: bookings}, nil
}

// Bookings returns the booking coordinator.
func (m *Module) Bookings() *booking.Service {
	return m.bookings
}

// Catalog returns the slot catalog.
func (m *Module) Catalog() *catalog.Service {
	return m.catalog
}

// SetIdempotencyStore enables cross-instance request deduplication.
func (m *Module) SetIdempotencyStore(store booking.IdempotencyStore) {
	m.bookings.SetIdempotencyStore(store)
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "scheduling"
}

// RegisterRoutes registers the module's routes under /api/v1/scheduling and
// /api/v1/admin/scheduling
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/scheduling"), ctx.MutationMiddleware()...)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/scheduling"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
