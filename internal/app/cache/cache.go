// Package cache is a thin optional redis layer for hot read-model values.
// A nil *Cache is valid and behaves as always-miss, so callers never branch
// on whether redis is configured.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/umatik/lottery-engine/pkg/logger"
)

// ErrMiss is returned when a key is absent or the cache is disabled.
var ErrMiss = errors.New("cache miss")

// Cache wraps a redis client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New connects to redis. An empty addr returns a nil cache (always-miss).
func New(ctx context.Context, addr, password string, db int, ttl time.Duration, log *logger.Logger) (*Cache, error) {
	if addr == "" {
		return nil, nil
	}
	if log == nil {
		log = logger.NewDefault("cache")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{client: client, ttl: ttl, log: log}, nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

// GetString fetches a string value.
func (c *Cache) GetString(ctx context.Context, key string) (string, error) {
	if c == nil {
		return "", ErrMiss
	}
	val, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	if err != nil {
		c.log.WithError(err).WithField("key", key).Debug("cache get failed")
		return "", ErrMiss
	}
	return val, nil
}

// SetString stores a string value under the default TTL. Errors are logged,
// never surfaced; the cache is advisory.
func (c *Cache) SetString(ctx context.Context, key, value string) {
	if c == nil {
		return
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Debug("cache set failed")
	}
}

// GetInt64 fetches an integer value.
func (c *Cache) GetInt64(ctx context.Context, key string) (int64, error) {
	raw, err := c.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrMiss
	}
	return n, nil
}

// SetInt64 stores an integer value.
func (c *Cache) SetInt64(ctx context.Context, key string, value int64) {
	c.SetString(ctx, key, strconv.FormatInt(value, 10))
}

// Delete drops keys, typically on invalidation after a write.
func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.WithError(err).Debug("cache delete failed")
	}
}
