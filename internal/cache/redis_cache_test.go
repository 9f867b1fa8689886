package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCacheWithClient(client, "test:market"), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "trending", []byte(`{"coins":[]}`), time.Minute)

	value, ok := c.Get(ctx, "trending")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"coins":[]}`), value)

	// Keys are namespaced under the configured prefix.
	assert.True(t, mr.Exists("test:market:trending"))
}

func TestRedisCacheMissOnUnknownKey(t *testing.T) {
	c, _ := newTestRedisCache(t)

	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestRedisCacheExpiry(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "detail:bitcoin:usd", []byte("payload"), time.Minute)

	mr.FastForward(59 * time.Second)
	_, ok := c.Get(ctx, "detail:bitcoin:usd")
	assert.True(t, ok)

	mr.FastForward(2 * time.Second)
	_, ok = c.Get(ctx, "detail:bitcoin:usd")
	assert.False(t, ok)
}

func TestRedisCacheFailureReportsMiss(t *testing.T) {
	c, mr := newTestRedisCache(t)
	ctx := context.Background()

	c.Set(ctx, "trending", []byte("payload"), time.Minute)
	mr.Close()

	// A dead backend degrades to a miss so callers fall through to the
	// upstream instead of failing the request.
	_, ok := c.Get(ctx, "trending")
	assert.False(t, ok)
}
