package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/loopcircuit/looproute/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// Memory is the in-process route cache backend: a bounded LRU where every
// entry expires after the cache-wide TTL given to NewMemory, evicted either
// by capacity pressure or by age, whichever comes first.
type Memory struct {
	lru    *expirable.LRU[string, []byte]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMemory builds a Memory cache. capacity <= 0 and ttl <= 0 fall back to
// DefaultCapacity / DefaultTTL.
func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](capacity, nil, ttl)}
}

// Get implements Cache.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_, span := tracing.StartSpan(ctx, "cache.get")
	defer span.End()

	value, found := m.lru.Get(key)
	if !found {
		m.misses.Add(1)
		span.SetAttributes(tracing.CacheAttributes(tracing.CacheTypeMemory, false, key)...)
		return nil, false, nil
	}

	m.hits.Add(1)
	span.SetAttributes(tracing.CacheAttributes(tracing.CacheTypeMemory, true, key)...)
	return value, true, nil
}

// Put implements Cache. The ttl argument (DefaultTTL when ttl <= 0) is only
// recorded on the trace span; the entry expires after the cache-wide TTL
// given to NewMemory, not after ttl.
func (m *Memory) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, span := tracing.StartSpan(ctx, "cache.put")
	defer span.End()

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	span.SetAttributes(
		attribute.String(tracing.AttrCacheType, tracing.CacheTypeMemory),
		attribute.String(tracing.AttrCacheKey, key),
		attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
	)
	m.lru.Add(key, value)
	return nil
}

// Stats implements Cache.
func (m *Memory) Stats(ctx context.Context) Stats {
	hits := m.hits.Load()
	misses := m.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, HitRate: hitRate, Healthy: true}
}

// Health implements Cache. The in-memory backend has no external
// dependency to fail against.
func (m *Memory) Health(ctx context.Context) bool { return true }

// BackendName implements Cache.
func (m *Memory) BackendName() string { return "memory" }
