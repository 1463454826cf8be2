// Package cache stores JSON-encoded values with an expiry, either in process memory or
// in Redis, so identical catalog queries within the staleness window skip the backend.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

var (
	hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chopfinder_cache_hits_total",
		Help: "The total number of page cache hits",
	})
	misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chopfinder_cache_misses_total",
		Help: "The total number of page cache misses",
	})
)

type Cache interface {
	// Get decodes the value stored under key into out, or returns ErrMiss.
	Get(ctx context.Context, key string, out any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Purge drops every key starting with prefix.
	Purge(ctx context.Context, prefix string) error
}

// Helper wraps a Cache with a typed read-through.
type Helper[T any] struct {
	Cache Cache
	TTL   time.Duration
	// OnError, when set, is told about cache writes that failed.
	OnError func(key string, err error)
}

func NewHelper[T any](c Cache, ttl time.Duration) *Helper[T] {
	return &Helper[T]{Cache: c, TTL: ttl}
}

// Handle returns the cached value for key, or calls fn and stores its result. Errors
// from fn are returned unchanged and never cached. A failing cache write does not
// fail the call.
func (h *Helper[T]) Handle(ctx context.Context, key string, fn func() (T, error)) (T, error) {
	var out T
	if err := h.Cache.Get(ctx, key, &out); err == nil {
		hits.Inc()
		return out, nil
	}
	misses.Inc()

	out, err := fn()
	if err != nil {
		return out, err
	}
	if err := h.Cache.Set(ctx, key, out, h.TTL); err != nil && h.OnError != nil {
		h.OnError(key, err)
	}
	return out, nil
}

func encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

func decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}
