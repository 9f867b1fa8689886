package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coinhatch/coinhatch/internal/config"
	"github.com/coinhatch/coinhatch/pkg/log"
)

// RedisCache is a Cache backed by a shared Redis instance, for
// deployments where several server processes should share one response
// cache. Redis owns expiry via per-key TTLs.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg config.RedisConfig, prefix string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: prefix,
	}, nil
}

// NewRedisCacheWithClient wraps an existing client. Used by tests.
func NewRedisCacheWithClient(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) prefixed(key string) string {
	return c.prefix + ":" + key
}

// Get returns the cached value when present and unexpired. Redis
// failures are logged and reported as a miss so callers fall through to
// the upstream.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, c.prefixed(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Str(log.FieldCacheKey, key).Msg("redis cache get failed")
		}
		return nil, false
	}
	return data, true
}

// Set overwrites the entry with expiry now + ttl.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefixed(key), value, ttl).Err(); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldCacheKey, key).Msg("redis cache set failed")
	}
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
