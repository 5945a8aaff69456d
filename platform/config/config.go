// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int
	GetDatabaseMinConns() int
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SchedulingConfig provides the booking engine's domain settings.
type SchedulingConfig interface {
	GetDefaultTimezone() string
	GetCooldownFirstMeeting() time.Duration
	GetCooldownSecondMeeting() time.Duration
	GetSuggestionWindowDays() int
	GetSuggestionMaxWindowDays() int
	GetCatalogCacheTTL() time.Duration
	GetReminderLeadTime() time.Duration
}

// IdempotencyConfig provides settings for the idempotency key store.
type IdempotencyConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetIdempotencyTTL() time.Duration
}

// RateLimitConfig provides settings for the per-IP mutation limiter.
type RateLimitConfig interface {
	GetBookingRateLimitPerMinute() int
	GetBookingRateLimitBurst() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	DatabaseMaxConns        int
	DatabaseMinConns        int
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	DefaultTimezone         string
	CooldownFirstMeeting    time.Duration
	CooldownSecondMeeting   time.Duration
	SuggestionWindowDays    int
	SuggestionMaxWindowDays int
	CatalogCacheTTL         time.Duration
	ReminderLeadTime        time.Duration
	IdempotencyTTL          time.Duration
	BookingRatePerMinute    int
	BookingRateBurst        int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string   { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int { return c.DatabaseMaxConns }
func (c *Config) GetDatabaseMinConns() int { return c.DatabaseMinConns }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// SchedulingConfig implementation
func (c *Config) GetDefaultTimezone() string               { return c.DefaultTimezone }
func (c *Config) GetCooldownFirstMeeting() time.Duration  { return c.CooldownFirstMeeting }
func (c *Config) GetCooldownSecondMeeting() time.Duration { return c.CooldownSecondMeeting }
func (c *Config) GetSuggestionWindowDays() int            { return c.SuggestionWindowDays }
func (c *Config) GetSuggestionMaxWindowDays() int         { return c.SuggestionMaxWindowDays }
func (c *Config) GetCatalogCacheTTL() time.Duration       { return c.CatalogCacheTTL }
func (c *Config) GetReminderLeadTime() time.Duration      { return c.ReminderLeadTime }

// IdempotencyConfig implementation
func (c *Config) GetIdempotencyTTL() time.Duration { return c.IdempotencyTTL }

// RateLimitConfig implementation
func (c *Config) GetBookingRateLimitPerMinute() int { return c.BookingRatePerMinute }
func (c *Config) GetBookingRateLimitBurst() int     { return c.BookingRateBurst }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:        mustInt(getEnv("DB_MAX_CONNS", "30")),
		DatabaseMinConns:        mustInt(getEnv("DB_MIN_CONNS", "4")),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		DefaultTimezone:         getEnv("SCHEDULING_TIMEZONE", "Europe/Amsterdam"),
		CooldownFirstMeeting:    mustDuration(getEnv("COOLDOWN_R1", "168h")),
		CooldownSecondMeeting:   mustDuration(getEnv("COOLDOWN_R2", "336h")),
		SuggestionWindowDays:    mustInt(getEnv("SUGGESTION_WINDOW_DAYS", "7")),
		SuggestionMaxWindowDays: mustInt(getEnv("SUGGESTION_MAX_WINDOW_DAYS", "30")),
		CatalogCacheTTL:         mustDuration(getEnv("CATALOG_CACHE_TTL", "1m")),
		ReminderLeadTime:        mustDuration(getEnv("REMINDER_LEAD_TIME", "24h")),
		IdempotencyTTL:          mustDuration(getEnv("IDEMPOTENCY_TTL", "24h")),
		BookingRatePerMinute:    mustInt(getEnv("BOOKING_RATE_LIMIT_PER_MINUTE", "60")),
		BookingRateBurst:        mustInt(getEnv("BOOKING_RATE_LIMIT_BURST", "20")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("SCHEDULING_TIMEZONE is invalid: %w", err)
	}
	if cfg.SuggestionWindowDays <= 0 || cfg.SuggestionMaxWindowDays < cfg.SuggestionWindowDays {
		return nil, fmt.Errorf("SUGGESTION_WINDOW_DAYS must be positive and not exceed SUGGESTION_MAX_WINDOW_DAYS")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
