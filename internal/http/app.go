// Package http holds what the router needs from the composition root: the
// assembled App and the contract each HTTP-facing module implements.
package http

import (
	"context"

	"closer_scheduling_backend/internal/events"
	"closer_scheduling_backend/platform/config"
	"closer_scheduling_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
	config.RateLimitConfig
}

// HealthChecker is a dependency that can answer a readiness probe.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names one dependency probed by /api/ready.
type ReadinessCheck struct {
	Name    string
	Checker HealthChecker
}

// App is built by cmd/api and handed to router.New.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Checks run on every /api/ready call; any failure reports 503.
	Checks   []ReadinessCheck
	EventBus events.Bus
	Modules  []Module
}
