// Package cache provides a small TTL cache with an injectable clock.
package cache

import (
	"sync"
	"time"
)

// TTL is a fixed-expiry in-memory cache. The zero value is not usable; use
// NewTTL.
type TTL[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[V]
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Option configures a TTL cache.
type Option[V any] func(*TTL[V])

// WithClock replaces the wall clock, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *TTL[V]) { c.now = now }
}

// NewTTL creates a cache whose entries expire ttl after insertion.
func NewTTL[V any](ttl time.Duration, opts ...Option[V]) *TTL[V] {
	c := &TTL[V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry[V]),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value for key if present and not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, resetting its expiry.
func (c *TTL[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}
