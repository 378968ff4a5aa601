package signal

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/cache"
	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(store *testutil.MockStorage) (*Generator, *cache.FeatureCache) {
	c := cache.New()
	g := NewGenerator(store, c, WithClock(func() time.Time { return testNow }))
	return g, c
}

func TestGenerator_ConsentRequired(t *testing.T) {
	t.Run("consent not granted", func(t *testing.T) {
		store := testutil.NewMockStorage().WithConsent("user-1", false)
		g, c := newTestGenerator(store)
		defer c.Close()

		_, err := g.CreditSignals(context.Background(), "user-1")

		require.Error(t, err)
		assert.True(t, common.IsConsentError(err))
	})

	t.Run("unknown user is fatal, not a soft warning", func(t *testing.T) {
		store := testutil.NewMockStorage()
		g, c := newTestGenerator(store)
		defer c.Close()

		_, err := g.GenerateAll(context.Background(), "ghost")

		require.Error(t, err)
		assert.True(t, common.IsConsentError(err))
	})

	t.Run("consent granted", func(t *testing.T) {
		store := testutil.NewMockStorage().WithConsent("user-1", true)
		g, c := newTestGenerator(store)
		defer c.Close()

		pair, err := g.CreditSignals(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, model.WindowShortDays, pair.Signals30d.WindowDays)
		assert.Equal(t, model.WindowLongDays, pair.Signals180d.WindowDays)
	})
}

func TestGenerator_CacheReadThrough(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{creditCard("card-1", "user-1", 1000, 5000)}
	g, c := newTestGenerator(store)
	defer c.Close()

	ctx := context.Background()

	first, err := g.CreditSignals(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, first.Signals30d.Cards[0].Utilization, 0.001)

	// Mutate underlying data without invalidating: within TTL the cached
	// pair is still served.
	store.Accounts[0].CurrentBalance = 4000
	second, err := g.CreditSignals(ctx, "user-1")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGenerator_InvalidationForcesRecompute(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{creditCard("card-1", "user-1", 1000, 5000)}
	g, c := newTestGenerator(store)
	defer c.Close()

	ctx := context.Background()

	first, err := g.CreditSignals(ctx, "user-1")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, first.Signals30d.Cards[0].Utilization, 0.001)

	// A data mutation must invalidate synchronously; the next read may not
	// see a bundle computed before the mutation, regardless of TTL.
	store.Accounts[0].CurrentBalance = 4000
	c.InvalidateUser("user-1")

	fresh, err := g.CreditSignals(ctx, "user-1")
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.InDelta(t, 80.0, fresh.Signals30d.Cards[0].Utilization, 0.001)
}

func TestGenerator_GenerateAllSharesOneAnchor(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{
		creditCard("card-1", "user-1", 1000, 5000),
		checkingAccount("chk-1", "user-1", 3000),
		savingsAccount("sav-1", "user-1", model.SubtypeSavings, 5000),
	}

	// A ticking clock: every sample after the first is later, so any code
	// path that re-reads the clock mid-run produces disagreeing anchors.
	tick := 0
	clock := func() time.Time {
		now := testNow.Add(time.Duration(tick) * time.Minute)
		tick++
		return now
	}
	c := cache.New()
	defer c.Close()
	g := NewGenerator(store, c, WithClock(clock))

	windows, err := g.GenerateAll(context.Background(), "user-1")
	require.NoError(t, err)

	require.NotNil(t, windows.Short.Credit)
	require.NotNil(t, windows.Short.Income)
	require.NotNil(t, windows.Short.Savings)
	require.NotNil(t, windows.Short.Subscriptions)

	// Every bundle in the run reflects the same "now" snapshot.
	for _, at := range []time.Time{
		windows.Short.Credit.ComputedAt,
		windows.Long.Credit.ComputedAt,
		windows.Short.Income.ComputedAt,
		windows.Long.Income.ComputedAt,
		windows.Short.Savings.ComputedAt,
		windows.Long.Savings.ComputedAt,
		windows.Short.Subscriptions.ComputedAt,
		windows.Long.Subscriptions.ComputedAt,
	} {
		assert.True(t, at.Equal(testNow))
	}

	assert.Equal(t, model.WindowShortDays, windows.Short.Credit.WindowDays)
	assert.Equal(t, model.WindowLongDays, windows.Long.Credit.WindowDays)
}

func TestGenerator_StoreErrorPropagates(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	g, c := newTestGenerator(store)
	defer c.Close()

	store.Err = assert.AnError

	_, err := g.SavingsSignals(context.Background(), "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
