package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move cache time forward without sleeping.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestCache(maxEntries int) (*MemoryCache, *fakeClock) {
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(maxEntries)
	c.now = clock.now
	return c, clock
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(0)
	ctx := context.Background()

	c.Set(ctx, "trending", []byte(`{"coins":[]}`), time.Minute)

	value, ok := c.Get(ctx, "trending")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"coins":[]}`), value)
}

func TestMemoryCacheMissOnUnknownKey(t *testing.T) {
	c, _ := newTestCache(0)

	_, ok := c.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c, clock := newTestCache(0)
	ctx := context.Background()

	c.Set(ctx, "detail:bitcoin:usd", []byte("payload"), time.Minute)

	clock.advance(59 * time.Second)
	_, ok := c.Get(ctx, "detail:bitcoin:usd")
	assert.True(t, ok, "entry should still be live just before the ttl")

	clock.advance(2 * time.Second)
	_, ok = c.Get(ctx, "detail:bitcoin:usd")
	assert.False(t, ok, "entry should be gone once the ttl elapsed")

	// The expired entry is evicted by the failed Get, not retained.
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheSetRefreshesExpiry(t *testing.T) {
	c, clock := newTestCache(0)
	ctx := context.Background()

	c.Set(ctx, "markets", []byte("stale"), time.Minute)
	clock.advance(45 * time.Second)
	c.Set(ctx, "markets", []byte("fresh"), time.Minute)
	clock.advance(45 * time.Second)

	value, ok := c.Get(ctx, "markets")
	require.True(t, ok, "overwrite should have reset the expiry clock")
	assert.Equal(t, []byte("fresh"), value)
}

func TestMemoryCacheEvictsExpiredFirstWhenFull(t *testing.T) {
	c, clock := newTestCache(2)
	ctx := context.Background()

	c.Set(ctx, "short", []byte("a"), time.Second)
	c.Set(ctx, "long", []byte("b"), time.Hour)
	clock.advance(2 * time.Second)

	c.Set(ctx, "new", []byte("c"), time.Hour)

	_, ok := c.Get(ctx, "short")
	assert.False(t, ok, "expired entry should have been evicted")
	_, ok = c.Get(ctx, "long")
	assert.True(t, ok, "live entry should have survived")
	_, ok = c.Get(ctx, "new")
	assert.True(t, ok)
}

func TestMemoryCacheEvictsOldestWhenFullAndNoneExpired(t *testing.T) {
	c, clock := newTestCache(2)
	ctx := context.Background()

	c.Set(ctx, "first", []byte("a"), time.Hour)
	clock.advance(time.Second)
	c.Set(ctx, "second", []byte("b"), time.Hour)
	clock.advance(time.Second)
	c.Set(ctx, "third", []byte("c"), time.Hour)

	_, ok := c.Get(ctx, "first")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.Get(ctx, "second")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "third")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestBuildKey(t *testing.T) {
	assert.Equal(t, "markets:bitcoin,ethereum:usd:1:10", BuildKey("markets", "bitcoin,ethereum", "usd", "1", "10"))
	assert.Equal(t, "trending", BuildKey("trending"))

	// Distinct parameters must never collapse onto one key.
	assert.NotEqual(t, BuildKey("detail", "bitcoin", "usd"), BuildKey("detail", "bitcoin", "eur"))
}
