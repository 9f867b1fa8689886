package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value      []byte
	insertedAt time.Time
	expiresAt  time.Time
}

// MemoryCache is a process-local Cache. Expired entries are evicted
// lazily on the next Get that finds them. With maxEntries > 0, Set
// bounds memory by dropping expired entries first, then the oldest one.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

// NewMemoryCache creates an in-memory cache. maxEntries of 0 means unbounded.
func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the value for key when present and unexpired. A present
// but expired entry is evicted and reported as a miss.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Set overwrites any existing entry for key with expiry now + ttl.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 {
		if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
			c.evictLocked(now)
		}
	}

	c.entries[key] = memoryEntry{
		value:      value,
		insertedAt: now,
		expiresAt:  now.Add(ttl),
	}
}

// Len reports the current entry count, expired entries included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLocked drops all expired entries; if none were expired it drops
// the oldest entry by insertion time. Caller holds the write lock.
func (c *MemoryCache) evictLocked(now time.Time) {
	removed := false
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed = true
		}
	}
	if removed {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.insertedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.insertedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
