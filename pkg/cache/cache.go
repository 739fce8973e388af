// Package cache implements the route cache (spec §4.10): a
// fingerprint-keyed memoization layer with two interchangeable backends,
// an in-memory bounded LRU with TTL and a remote key-value store. Both
// satisfy the same Cache contract and are safe for concurrent use without
// any caller-side locking.
package cache

import (
	"context"
	"time"
)

// Stats reports a backend's hit/miss counters.
type Stats struct {
	Hits    uint64
	Misses  uint64
	HitRate float64
	Healthy bool
}

// Cache is the contract both backends satisfy. Get returns (nil, false,
// nil) on a clean miss; a non-nil error means the backend itself failed,
// which callers must treat as a miss and continue to cold generation
// (spec §4.10: "cache errors are never fatal").
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Stats(ctx context.Context) Stats
	Health(ctx context.Context) bool
	BackendName() string
}

// DefaultTTL and DefaultCapacity match the original's 24h / 1000-entry
// defaults for the route cache.
const (
	DefaultTTL      = 24 * time.Hour
	DefaultCapacity = 1000
)
