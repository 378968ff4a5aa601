package cache

import (
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestFeatureCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		c := New()
		defer c.Close()

		key := service.CacheKey{Category: model.SignalCredit, UserID: "user-1"}

		// Empty cache
		_, found := c.Get(key)
		assert.False(t, found)

		bundle := &model.CreditSignals{WindowDays: 30, AverageUtilization: 42.0}
		c.Set(key, bundle, 5*time.Minute)

		got, found := c.Get(key)
		assert.True(t, found)
		assert.Equal(t, bundle, got)
		assert.Equal(t, 1, c.Size())
	})

	t.Run("expiration", func(t *testing.T) {
		now := time.Now()
		c := New(WithClock(func() time.Time { return now }))
		defer c.Close()

		key := service.CacheKey{Category: model.SignalIncome, UserID: "user-1"}
		c.Set(key, &model.IncomeSignals{WindowDays: 30}, 10*time.Minute)

		_, found := c.Get(key)
		assert.True(t, found)

		// Advance past the TTL
		now = now.Add(11 * time.Minute)
		_, found = c.Get(key)
		assert.False(t, found)
	})

	t.Run("explicit invalidation beats TTL", func(t *testing.T) {
		c := New()
		defer c.Close()

		key := service.CacheKey{Category: model.SignalSavings, UserID: "user-1"}
		c.Set(key, &model.SavingsSignals{WindowDays: 30}, 24*time.Hour)

		c.Invalidate(key)

		_, found := c.Get(key)
		assert.False(t, found)
	})

	t.Run("invalidate user removes all categories, only that user", func(t *testing.T) {
		c := New()
		defer c.Close()

		categories := []model.SignalCategory{
			model.SignalCredit,
			model.SignalIncome,
			model.SignalSavings,
			model.SignalSubscription,
		}
		for _, cat := range categories {
			c.Set(service.CacheKey{Category: cat, UserID: "user-1"}, "bundle", time.Hour)
		}
		other := service.CacheKey{Category: model.SignalCredit, UserID: "user-2"}
		c.Set(other, "bundle", time.Hour)

		c.InvalidateUser("user-1")

		for _, cat := range categories {
			_, found := c.Get(service.CacheKey{Category: cat, UserID: "user-1"})
			assert.False(t, found, "category %s should be invalidated", cat)
		}
		_, found := c.Get(other)
		assert.True(t, found, "other users' entries must survive")
	})

	t.Run("zero TTL falls back to category default", func(t *testing.T) {
		now := time.Now()
		c := New(WithClock(func() time.Time { return now }))
		defer c.Close()

		key := service.CacheKey{Category: model.SignalCredit, UserID: "user-1"}
		c.Set(key, "bundle", 0)

		now = now.Add(TTLCredit - time.Minute)
		_, found := c.Get(key)
		assert.True(t, found)

		now = now.Add(2 * time.Minute)
		_, found = c.Get(key)
		assert.False(t, found)
	})
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, TTLCredit, DefaultTTL(model.SignalCredit))
	assert.Equal(t, TTLIncome, DefaultTTL(model.SignalIncome))
	assert.Equal(t, TTLSavings, DefaultTTL(model.SignalSavings))
	assert.Equal(t, TTLSubscription, DefaultTTL(model.SignalSubscription))
	assert.Equal(t, 15*time.Minute, DefaultTTL(model.SignalCategory("bogus")))
}
