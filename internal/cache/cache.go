// Package cache provides the feature cache: thread-safe, TTL-bounded
// memoization of detector output keyed by (category, user).
//
// TTL alone is not the consistency mechanism. Any write to a user's
// accounts, transactions, or liabilities must invalidate that user's
// entries synchronously; a stale entry surviving a data mutation is a
// correctness bug.
package cache

import (
	"sync"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Default TTLs per signal category. Credit signals move fastest (payments
// post daily); subscription structure is the most stable.
const (
	TTLCredit       = 15 * time.Minute
	TTLIncome       = 1 * time.Hour
	TTLSavings      = 1 * time.Hour
	TTLSubscription = 6 * time.Hour
)

// DefaultTTL returns the default TTL for a signal category.
func DefaultTTL(category model.SignalCategory) time.Duration {
	switch category {
	case model.SignalCredit:
		return TTLCredit
	case model.SignalIncome:
		return TTLIncome
	case model.SignalSavings:
		return TTLSavings
	case model.SignalSubscription:
		return TTLSubscription
	default:
		return 15 * time.Minute
	}
}

// entry holds one cached value with its expiry.
type entry struct {
	expiry time.Time
	value  any
}

// FeatureCache implements service.FeatureCache with an in-memory map.
type FeatureCache struct {
	entries map[service.CacheKey]entry
	stopCh  chan struct{}
	now     func() time.Time
	mu      sync.RWMutex
}

// Option configures a FeatureCache.
type Option func(*FeatureCache)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *FeatureCache) {
		c.now = now
	}
}

// New creates a feature cache and starts its background sweeper.
func New(opts ...Option) *FeatureCache {
	c := &FeatureCache{
		entries: make(map[service.CacheKey]entry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	go c.sweep()

	return c
}

// Get retrieves a value if present and not expired.
func (c *FeatureCache) Get(key service.CacheKey) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().After(e.expiry) {
		return nil, false
	}

	return e.value, true
}

// Set stores a value with the given TTL. A non-positive TTL falls back to
// the category default.
func (c *FeatureCache) Set(key service.CacheKey, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL(key.Category)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		value:  value,
		expiry: c.now().Add(ttl),
	}
}

// Invalidate removes one entry immediately.
func (c *FeatureCache) Invalidate(key service.CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateUser removes every category's entry for one user. Called
// synchronously by anything that mutates the user's underlying data.
func (c *FeatureCache) InvalidateUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key.UserID == userID {
			delete(c.entries, key)
		}
	}
}

// Size returns the number of live entries, expired or not.
func (c *FeatureCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// sweep periodically removes expired entries.
func (c *FeatureCache) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for key, e := range c.entries {
				if now.After(e.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Close stops the background sweeper.
func (c *FeatureCache) Close() {
	close(c.stopCh)
}
