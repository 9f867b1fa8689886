package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is a key-value store with per-entry expiry, used to shield the
// upstream market-data provider from redundant calls. Absence is an
// expected result, not an error: backends report infrastructure
// failures as a miss and log the detail themselves.
type Cache interface {
	// Get returns the cached value when present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set unconditionally overwrites the entry with a fresh expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// BuildKey joins request parameters into a deterministic cache key.
// Every parameter that affects the response must be included so that
// distinct requests never collide and identical requests always share
// one key.
func BuildKey(parts ...string) string {
	return strings.Join(parts, ":")
}
