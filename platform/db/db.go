// Package db opens the Postgres pool and applies the embedded schema.
// This is part of the platform layer and contains no business logic.
package db

import (
	"context"
	"fmt"
	"time"

	"closer_scheduling_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "closer-scheduling"

// NewPool connects and pings. Booking writes are short transactions while
// ranking fans reads out per closer, so the pool keeps a warm minimum.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	maxConns, minConns := cfg.GetDatabaseMaxConns(), cfg.GetDatabaseMinConns()
	if maxConns <= 0 {
		maxConns = 30
	}
	if minConns < 0 || minConns > maxConns {
		minConns = 0
	}
	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = int32(minConns)
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	if _, ok := poolConfig.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}
