package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/loopcircuit/looproute/pkg/tracing"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Redis is the remote key-value route cache backend. TTL is handled by
// Redis itself (EX on SET); this backend just tracks hit/miss counters on
// top.
type Redis struct {
	client *redis.Client
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Get implements Cache. A redis.Nil is a clean miss, not an error.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_, span := tracing.StartSpan(ctx, "cache.get")
	defer span.End()

	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		span.SetAttributes(tracing.CacheAttributes(tracing.CacheTypeRedis, false, key)...)
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	r.hits.Add(1)
	span.SetAttributes(tracing.CacheAttributes(tracing.CacheTypeRedis, true, key)...)
	return value, true, nil
}

// Put implements Cache. ttl <= 0 uses DefaultTTL.
func (r *Redis) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, span := tracing.StartSpan(ctx, "cache.put")
	defer span.End()

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	span.SetAttributes(
		attribute.String(tracing.AttrCacheType, tracing.CacheTypeRedis),
		attribute.String(tracing.AttrCacheKey, key),
		attribute.Int64("cache.ttl_ms", ttl.Milliseconds()),
	)

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Stats implements Cache.
func (r *Redis) Stats(ctx context.Context) Stats {
	hits := r.hits.Load()
	misses := r.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, HitRate: hitRate, Healthy: r.Health(ctx)}
}

// Health implements Cache by pinging Redis.
func (r *Redis) Health(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

// BackendName implements Cache.
func (r *Redis) BackendName() string { return "redis" }
