package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"anitrack/internal/logger"
	"anitrack/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Get().Info("Redis connection successful")
	return client, nil
}

// Cache is a JSON cache-aside helper over Redis. A nil client turns every
// call into a miss or a no-op, so callers never need to branch on it.
type Cache struct {
	redis  *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{redis: client, logger: logger}
}

// GetJSON decodes the cached value at key into dst. It reports false on a
// miss or on any Redis or decode error; errors are logged, not returned.
func (c *Cache) GetJSON(ctx context.Context, name, key string, dst any) bool {
	if c == nil || c.redis == nil {
		return false
	}

	cached, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).WithField("key", key).Warn("Failed to read from Redis")
		}
		metrics.Get().CacheMissesTotal.WithLabelValues(name).Inc()
		return false
	}

	if err := json.Unmarshal([]byte(cached), dst); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to unmarshal cached value")
		metrics.Get().CacheMissesTotal.WithLabelValues(name).Inc()
		return false
	}

	metrics.Get().CacheHitsTotal.WithLabelValues(name).Inc()
	return true
}

func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.redis == nil {
		return
	}

	b, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to marshal value for caching")
		return
	}

	if err := c.redis.Set(ctx, key, b, ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Failed to write to cache")
	}
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if c == nil || c.redis == nil || len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.WithError(err).WithField("keys", keys).Warn("Failed to delete cache keys")
	}
}

// DeletePattern removes every key matching pattern. SCAN is used instead of
// KEYS so a large keyspace does not block Redis.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	if c == nil || c.redis == nil {
		return
	}

	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WithError(err).WithField("pattern", pattern).Warn("Failed to scan cache keys")
		return
	}

	c.Delete(ctx, keys...)
}
