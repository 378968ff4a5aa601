package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Provider fetches account, transaction, and liability data from an
// external aggregator. *Client satisfies this.
type Provider interface {
	GetAccounts(ctx context.Context, userID string) ([]model.Account, error)
	GetTransactions(ctx context.Context, userID string, startDate, endDate time.Time) ([]model.Transaction, error)
	GetLiabilities(ctx context.Context, userID string) ([]model.Liability, error)
}

// SyncResult summarizes one import run.
type SyncResult struct {
	Accounts     int
	Transactions int
	Liabilities  int
}

// ProgressFunc is notified as each import stage completes.
type ProgressFunc func(stage string, count int)

// Importer pulls data from a provider into local storage and keeps the
// feature cache consistent with what was written.
type Importer struct {
	provider Provider
	store    service.Storage
	cache    service.FeatureCache
	progress ProgressFunc
	logger   *slog.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithProgress reports stage completion during Sync.
func WithProgress(fn ProgressFunc) ImporterOption {
	return func(i *Importer) {
		i.progress = fn
	}
}

// NewImporter creates an importer. The provider may be nil when only
// pre-fetched data is imported; the cache may be nil when no cache is
// in play.
func NewImporter(provider Provider, store service.Storage, cache service.FeatureCache, opts ...ImporterOption) *Importer {
	imp := &Importer{
		provider: provider,
		store:    store,
		cache:    cache,
		logger:   slog.Default().With("component", "importer"),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Sync imports accounts, transactions in the date range, and liabilities
// for the user, then invalidates the user's cached signals before
// returning so later reads recompute from the fresh data.
func (i *Importer) Sync(ctx context.Context, userID string, startDate, endDate time.Time) (*SyncResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty")
	}

	result := &SyncResult{}

	accounts, err := i.provider.GetAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts: %w", err)
	}
	if len(accounts) > 0 {
		if err := i.store.SaveAccounts(ctx, accounts); err != nil {
			return nil, fmt.Errorf("failed to save accounts: %w", err)
		}
	}
	result.Accounts = len(accounts)
	i.report("accounts", result.Accounts)

	transactions, err := i.provider.GetTransactions(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	if len(transactions) > 0 {
		if err := i.store.SaveTransactions(ctx, transactions); err != nil {
			return nil, fmt.Errorf("failed to save transactions: %w", err)
		}
	}
	result.Transactions = len(transactions)
	i.report("transactions", result.Transactions)

	liabilities, err := i.provider.GetLiabilities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch liabilities: %w", err)
	}
	for idx := range liabilities {
		if err := i.store.SaveLiability(ctx, &liabilities[idx]); err != nil {
			return nil, fmt.Errorf("failed to save liability for account %s: %w", liabilities[idx].AccountID, err)
		}
	}
	result.Liabilities = len(liabilities)
	i.report("liabilities", result.Liabilities)

	if i.cache != nil {
		i.cache.InvalidateUser(userID)
	}

	i.logger.Info("Import complete",
		"user_id", userID,
		"accounts", result.Accounts,
		"transactions", result.Transactions,
		"liabilities", result.Liabilities)

	return result, nil
}

// ImportTransactions writes already-fetched transactions for the user
// through the same path Sync uses: save, then invalidate the user's
// cached signals. File-based sources with no live provider use this.
func (i *Importer) ImportTransactions(ctx context.Context, userID string, transactions []model.Transaction) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	if userID == "" {
		return fmt.Errorf("user ID cannot be empty")
	}

	if len(transactions) > 0 {
		if err := i.store.SaveTransactions(ctx, transactions); err != nil {
			return fmt.Errorf("failed to save transactions: %w", err)
		}
	}

	if i.cache != nil {
		i.cache.InvalidateUser(userID)
	}

	i.logger.Info("Import complete",
		"user_id", userID,
		"transactions", len(transactions))

	return nil
}

func (i *Importer) report(stage string, count int) {
	if i.progress != nil {
		i.progress(stage, count)
	}
}
