// Package idempotency stores idempotency keys in Redis so retried mutations
// are recognized across API instances.
// This is part of the platform layer and contains no business logic.
package idempotency

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"closer_scheduling_backend/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "idem:"
	pendingValue = "pending"
)

// releasePending deletes the key only while it is still unfinished.
var releasePending = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore records reserved and completed idempotency keys.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Connect builds a client from the configured REDIS_URL.
func Connect(cfg config.IdempotencyConfig) (*RedisStore, error) {
	if cfg.GetRedisURL() == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}
	return NewRedisStore(redis.NewClient(opt), cfg.GetIdempotencyTTL()), nil
}

// Reserve claims key. It reports false when the key is already reserved or completed.
func (s *RedisStore) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, pendingValue, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Complete records the booking a reserved key produced.
func (s *RedisStore) Complete(ctx context.Context, key string, bookingID uuid.UUID) error {
	if err := s.client.Set(ctx, keyPrefix+key, bookingID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Lookup returns the booking recorded for a completed key.
func (s *RedisStore) Lookup(ctx context.Context, key string) (uuid.UUID, bool, error) {
	value, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if value == pendingValue {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt idempotency record for %q: %w", key, err)
	}
	return id, true, nil
}

// Release drops an unfinished reservation. Completed keys are kept.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := releasePending.Run(ctx, s.client, []string{keyPrefix + key}, pendingValue).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
