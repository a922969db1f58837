// Package swr is a keyed request cache in the stale-while-revalidate style.
//
// Values are stored per key after the first successful fetch, concurrent fetches of the
// same key share one call, and a fallback map can pre-seed keys so the first read never
// hits the network. Errors are returned to every waiter and never cached.
package swr

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/matheuskafuri/blogsearch/internal/metrics"
)

type Cache struct {
	mu     sync.RWMutex
	data   map[string]any
	group  singleflight.Group
	logger *zap.Logger
}

type Option func(*Cache)

// WithFallback pre-seeds the cache. Later fetches of these keys are served from it.
func WithFallback(fallback map[string]any) Option {
	return func(c *Cache) {
		for k, v := range fallback {
			c.data[k] = v
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		data:   make(map[string]any),
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) Peek(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Mutate replaces the cached value for key.
func (c *Cache) Mutate(key string, v any) {
	c.mu.Lock()
	c.data[key] = v
	c.mu.Unlock()
}

func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Get returns the cached value for key, or calls fetch and caches its result.
// Concurrent Gets for a key that is not cached yet share a single fetch; the
// context of the caller that started it is the one the fetch runs under.
func Get[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](c, key); ok {
		metrics.CacheTotal.WithLabelValues("hit").Inc()
		return v, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		if v, ok := lookup[T](c, key); ok {
			return v, nil
		}
		metrics.CacheTotal.WithLabelValues("miss").Inc()
		val, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Mutate(key, val)
		return val, nil
	})
	if shared {
		metrics.CacheTotal.WithLabelValues("shared").Inc()
	}
	if err != nil {
		metrics.CacheTotal.WithLabelValues("error").Inc()
		c.logger.Debug("fetch failed", zap.String("key", key), zap.Error(err))
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Revalidate drops key and fetches it again.
func Revalidate[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	c.Invalidate(key)
	return Get(ctx, c, key, fetch)
}

// lookup treats a value of the wrong type as a miss, so a mis-seeded fallback is refetched.
func lookup[T any](c *Cache, key string) (T, bool) {
	v, ok := c.Peek(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
