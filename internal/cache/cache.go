// Package cache holds short-lived copies of remote reads.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/naveenspark/roster/internal/log"
)

const (
	DefaultExpiration      = 5 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// Manager is a typed key/value cache.
type Manager[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	Flush(ctx context.Context)
}

// InMemory is a Manager backed by go-cache.
type InMemory[V any] struct {
	useCase string
	cache   *gocache.Cache
}

// NewInMemory creates an in-memory cache. useCase labels log lines.
func NewInMemory[V any](useCase string, defaultExpiration, cleanupInterval time.Duration) *InMemory[V] {
	return &InMemory[V]{
		useCase: useCase,
		cache:   gocache.New(defaultExpiration, cleanupInterval),
	}
}

// Get retrieves an item from the cache by its key.
func (c *InMemory[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V

	value, found := c.cache.Get(key)
	if !found {
		log.Debug(log.CatCache, "cache miss", "cache", c.useCase, "key", key)
		return zero, false
	}

	v, ok := value.(V)
	if !ok {
		log.Error(log.CatCache, "wrong type assertion when getting value", "cache", c.useCase, "key", key)
		return zero, false
	}

	log.Debug(log.CatCache, "cache hit", "cache", c.useCase, "key", key)
	return v, true
}

// Set stores value under key for ttl.
func (c *InMemory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) {
	c.cache.Set(key, value, ttl)
}

// Delete removes keys from the cache.
func (c *InMemory[V]) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		c.cache.Delete(key)
	}
}

// Flush empties the cache.
func (c *InMemory[V]) Flush(_ context.Context) {
	c.cache.Flush()
}

// ReadThrough serves Get from the cache and falls back to fn on a miss.
// Errors from fn are not cached.
type ReadThrough[V any, I any] struct {
	cache    Manager[V]
	fn       func(ctx context.Context, input I) (V, error)
	ttl      time.Duration
	skipping bool
}

// NewReadThrough wraps fn with cache. With skip set every Get calls fn.
func NewReadThrough[V any, I any](cache Manager[V], fn func(ctx context.Context, input I) (V, error), ttl time.Duration, skip bool) *ReadThrough[V, I] {
	return &ReadThrough[V, I]{cache: cache, fn: fn, ttl: ttl, skipping: skip}
}

// Get returns the cached value for key or loads it with input.
func (r *ReadThrough[V, I]) Get(ctx context.Context, key string, input I) (V, error) {
	if r.skipping {
		return r.fn(ctx, input)
	}
	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}

	value, err := r.fn(ctx, input)
	if err != nil {
		return value, err
	}
	r.cache.Set(ctx, key, value, r.ttl)
	return value, nil
}

// Invalidate drops key so the next Get reloads it.
func (r *ReadThrough[V, I]) Invalidate(ctx context.Context, key string) {
	r.cache.Delete(ctx, key)
}
