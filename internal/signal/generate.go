package signal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Pair is one category's bundle for both windows, the unit the feature
// cache stores.
type Pair[T any] struct {
	Signals30d  *T
	Signals180d *T
}

// Generator is the cached, consent-gated entry point over the four
// detectors. Consent is verified before any data is read; a missing or
// revoked consent aborts with a ConsentError rather than degrading.
type Generator struct {
	store         service.Storage
	cache         service.FeatureCache
	credit        *CreditDetector
	income        *IncomeDetector
	savings       *SavingsDetector
	subscriptions *SubscriptionDetector
	logger        *slog.Logger
	now           func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the Generator's time source, for tests.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a Generator over the given store and cache.
func NewGenerator(store service.Storage, cache service.FeatureCache, opts ...GeneratorOption) *Generator {
	g := &Generator{
		store:         store,
		cache:         cache,
		credit:        NewCreditDetector(store),
		income:        NewIncomeDetector(store),
		savings:       NewSavingsDetector(store),
		subscriptions: NewSubscriptionDetector(store),
		logger:        slog.Default().With("component", "signal.generator"),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// RequireConsent verifies the user's consent flag before any computation.
// A missing user or revoked consent yields a ConsentError; store failures
// propagate unmodified.
func (g *Generator) RequireConsent(ctx context.Context, userID, operation string) error {
	granted, err := g.store.GetConsent(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return common.NewConsentError(userID, operation, "user not found")
		}
		return fmt.Errorf("failed to look up consent: %w", err)
	}

	if !granted {
		return common.NewConsentError(userID, operation, "consent not granted")
	}

	return nil
}

// CreditSignals returns the user's credit bundle pair, read-through cached.
func (g *Generator) CreditSignals(ctx context.Context, userID string) (*Pair[model.CreditSignals], error) {
	return generatePair(ctx, g, model.SignalCredit, userID, g.now(), g.credit.CalculateSignals)
}

// IncomeSignals returns the user's income bundle pair, read-through cached.
func (g *Generator) IncomeSignals(ctx context.Context, userID string) (*Pair[model.IncomeSignals], error) {
	return generatePair(ctx, g, model.SignalIncome, userID, g.now(), g.income.CalculateSignals)
}

// SavingsSignals returns the user's savings bundle pair, read-through cached.
func (g *Generator) SavingsSignals(ctx context.Context, userID string) (*Pair[model.SavingsSignals], error) {
	return generatePair(ctx, g, model.SignalSavings, userID, g.now(), g.savings.CalculateSignals)
}

// SubscriptionSignals returns the user's subscription bundle pair,
// read-through cached.
func (g *Generator) SubscriptionSignals(ctx context.Context, userID string) (*Pair[model.SubscriptionSignals], error) {
	return generatePair(ctx, g, model.SignalSubscription, userID, g.now(), g.subscriptions.CalculateSignals)
}

// GenerateAll produces all four categories for one classification run. The
// consent check runs once up front, and every fresh computation in the call
// shares a single "now" anchor so the window boundaries agree.
func (g *Generator) GenerateAll(ctx context.Context, userID string) (model.SignalWindows, error) {
	if err := g.RequireConsent(ctx, userID, "generate_signals"); err != nil {
		return model.SignalWindows{}, err
	}

	now := g.now()

	credit, err := generatePair(ctx, g, model.SignalCredit, userID, now, g.credit.CalculateSignals)
	if err != nil {
		return model.SignalWindows{}, err
	}
	income, err := generatePair(ctx, g, model.SignalIncome, userID, now, g.income.CalculateSignals)
	if err != nil {
		return model.SignalWindows{}, err
	}
	savings, err := generatePair(ctx, g, model.SignalSavings, userID, now, g.savings.CalculateSignals)
	if err != nil {
		return model.SignalWindows{}, err
	}
	subscriptions, err := generatePair(ctx, g, model.SignalSubscription, userID, now, g.subscriptions.CalculateSignals)
	if err != nil {
		return model.SignalWindows{}, err
	}

	return model.SignalWindows{
		Short: model.SignalSnapshot{
			Credit:        credit.Signals30d,
			Income:        income.Signals30d,
			Savings:       savings.Signals30d,
			Subscriptions: subscriptions.Signals30d,
		},
		Long: model.SignalSnapshot{
			Credit:        credit.Signals180d,
			Income:        income.Signals180d,
			Savings:       savings.Signals180d,
			Subscriptions: subscriptions.Signals180d,
		},
	}, nil
}

// generatePair is the shared read-through path: consent, cache probe,
// compute both windows from one anchor, cache with the category's TTL.
func generatePair[T any](ctx context.Context, g *Generator, category model.SignalCategory, userID string, now time.Time, calculate func(context.Context, string, Window) (*T, error)) (*Pair[T], error) {
	if err := g.RequireConsent(ctx, userID, "generate_signals:"+string(category)); err != nil {
		return nil, err
	}

	key := service.CacheKey{Category: category, UserID: userID}
	if cached, ok := g.cache.Get(key); ok {
		if pair, ok := cached.(*Pair[T]); ok {
			g.logger.Debug("Feature cache hit", "category", category, "user_id", userID)
			return pair, nil
		}
	}

	short, err := calculate(ctx, userID, NewWindow(now, model.WindowShortDays))
	if err != nil {
		return nil, err
	}
	long, err := calculate(ctx, userID, NewWindow(now, model.WindowLongDays))
	if err != nil {
		return nil, err
	}

	pair := &Pair[T]{Signals30d: short, Signals180d: long}
	g.cache.Set(key, pair, 0)

	return pair, nil
}
