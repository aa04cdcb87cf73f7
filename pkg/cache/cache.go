// Package cache is a small JSON-over-Redis cache.
//
// A nil *Store is valid and behaves as a permanently empty cache, so callers
// never branch on whether Redis is configured:
//
//	var store *cache.Store // REDIS_ADDR unset
//	products, err := cache.Remember(ctx, store, "catalog:products", ttl, load)
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-go/storefront/config"
	"github.com/storefront-go/storefront/pkg/logger"
	"github.com/storefront-go/storefront/pkg/metrics"
)

// Store wraps a Redis client.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return &Store{rdb: rdb, ttl: cfg.CacheTTL}, nil
}

// Client exposes the underlying client so the queue can share the connection.
func (s *Store) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.rdb
}

// TTL is the default expiry configured by CACHE_TTL.
func (s *Store) TTL() time.Duration {
	if s == nil {
		return 0
	}
	return s.ttl
}

// Get unmarshals the value under key into dest and reports a hit.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	if s == nil {
		return false
	}
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, dest) == nil
}

// Set stores value under key. A zero ttl uses the store default.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal %s: %w", key, err)
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}

// Forget removes keys.
func (s *Store) Forget(ctx context.Context, keys ...string) error {
	if s == nil || len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// ForgetPrefix removes every key starting with prefix.
func (s *Store) ForgetPrefix(ctx context.Context, prefix string) error {
	if s == nil {
		return nil
	}
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan %s: %w", prefix, err)
	}
	return s.Forget(ctx, batch...)
}

// Close releases the connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.rdb.Close()
}

// Remember returns the cached value for key, or calls load and caches what
// it returns. Cache failures are logged and never fail the read.
func Remember[T any](ctx context.Context, s *Store, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	space := keySpace(key)

	var cached T
	if s.Get(ctx, key, &cached) {
		metrics.RecordCache(space, true)
		return cached, nil
	}
	if s != nil {
		metrics.RecordCache(space, false)
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if err := s.Set(ctx, key, v, ttl); err != nil {
		logger.WithCtx(ctx).Warn("cache: set failed", "key", key, "error", err)
	}
	return v, nil
}

// keySpace is the key up to its second colon: "catalog:products:3" → "catalog:products".
func keySpace(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) < 2 {
		return parts[0]
	}
	return parts[0] + ":" + parts[1]
}
