package signal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

const (
	// subscriptionDetectionDays is the fixed lookback used to decide
	// whether a merchant recurs, independent of the signal window.
	subscriptionDetectionDays = 90
	// minOccurrences is the occurrence count a merchant needs inside the
	// detection window to be considered recurring.
	minOccurrences = 3
	// weeklyGapMaxDays and monthlyGapMaxDays bound the cadence buckets;
	// groups with a larger median gap are not subscriptions.
	weeklyGapMaxDays  = 10
	monthlyGapMaxDays = 35
	// weeksPerMonth converts a weekly charge to its monthly equivalent.
	weeksPerMonth = 4.33
)

// SubscriptionDetector finds recurring merchants and computes the user's
// subscription load.
type SubscriptionDetector struct {
	store  service.Storage
	logger *slog.Logger
}

// NewSubscriptionDetector creates a subscription detector backed by the
// given store.
func NewSubscriptionDetector(store service.Storage) *SubscriptionDetector {
	return &SubscriptionDetector{
		store:  store,
		logger: slog.Default().With("component", "signal.subscription"),
	}
}

// Category returns the detector's signal category.
func (d *SubscriptionDetector) Category() model.SignalCategory {
	return model.SignalSubscription
}

// CalculateSignals computes the subscription bundle for one user and
// window. Recurrence is detected over a fixed 90-day lookback; the signal
// window scopes the spend-share denominator and which subscriptions count
// toward it.
func (d *SubscriptionDetector) CalculateSignals(ctx context.Context, userID string, window Window) (*model.SubscriptionSignals, error) {
	detection := NewWindow(window.End, subscriptionDetectionDays)

	// One fetch covers both ranges: the detection lookback for recurrence
	// and the full signal window for the spend-share denominator.
	fetchStart := window.Start
	if detection.Start.Before(fetchStart) {
		fetchStart = detection.Start
	}

	transactions, err := d.store.GetTransactions(ctx, userID, service.TransactionFilter{
		StartDate: &fetchStart,
		EndDate:   &window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	signals := &model.SubscriptionSignals{
		WindowDays: window.Days,
		ComputedAt: window.End,
	}

	var detectionTxs []model.Transaction
	for _, t := range transactions {
		if detection.Contains(t.Date) {
			detectionTxs = append(detectionTxs, t)
		}
	}

	groups := groupExpensesByMerchant(detectionTxs)
	for _, group := range groups {
		sub, ok := detectSubscription(group)
		if !ok {
			continue
		}
		signals.Subscriptions = append(signals.Subscriptions, sub)
		signals.MonthlyRecurringSpend += sub.MonthlyEquivalent
	}

	// Deterministic ordering for snapshots and traces.
	sort.Slice(signals.Subscriptions, func(i, j int) bool {
		return signals.Subscriptions[i].MerchantName < signals.Subscriptions[j].MerchantName
	})
	signals.Count = len(signals.Subscriptions)

	for _, t := range transactions {
		if t.IsExpense() && window.Contains(t.Date) {
			signals.TotalExpenses += math.Abs(t.Amount)
		}
	}

	if signals.TotalExpenses > 0 {
		overlapping := 0.0
		for _, sub := range signals.Subscriptions {
			// A subscription counts toward the share only when it was
			// active inside the signal window.
			if !sub.LastSeen.Before(window.Start) {
				overlapping += sub.MonthlyEquivalent
			}
		}
		signals.SharePercent = overlapping / signals.TotalExpenses * 100
	}

	d.logger.Debug("Computed subscription signals",
		"user_id", userID,
		"window_days", window.Days,
		"subscriptions", signals.Count,
		"monthly_spend", signals.MonthlyRecurringSpend,
		"share_percent", signals.SharePercent)

	return signals, nil
}

// groupExpensesByMerchant buckets expense transactions by merchant
// identity, preferring the stable entity ID over the display name.
func groupExpensesByMerchant(transactions []model.Transaction) map[string][]model.Transaction {
	groups := make(map[string][]model.Transaction)
	for _, t := range transactions {
		if !t.IsExpense() {
			continue
		}
		key := t.MerchantKey()
		if key == "" {
			continue
		}
		groups[key] = append(groups[key], t)
	}
	return groups
}

// detectSubscription decides whether a merchant group recurs and, if so,
// computes its cadence and monthly-equivalent spend.
func detectSubscription(group []model.Transaction) (model.Subscription, bool) {
	if len(group) < minOccurrences {
		return model.Subscription{}, false
	}

	sorted := make([]model.Transaction, len(group))
	copy(sorted, group)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	dates := make([]time.Time, len(sorted))
	amounts := make([]float64, len(sorted))
	for i, t := range sorted {
		dates[i] = t.Date
		amounts[i] = math.Abs(t.Amount)
	}

	medianGap := median(dayGaps(dates))

	var cadence model.Cadence
	switch {
	case medianGap <= weeklyGapMaxDays:
		cadence = model.CadenceWeekly
	case medianGap <= monthlyGapMaxDays:
		cadence = model.CadenceMonthly
	default:
		// Too far apart to be a subscription.
		return model.Subscription{}, false
	}

	averageAmount := mean(amounts)
	monthlyEquivalent := averageAmount
	if cadence == model.CadenceWeekly {
		monthlyEquivalent = averageAmount * weeksPerMonth
	}

	return model.Subscription{
		MerchantName:      sorted[0].MerchantName,
		MerchantEntityID:  sorted[0].MerchantEntityID,
		Cadence:           cadence,
		Occurrences:       len(sorted),
		AverageAmount:     averageAmount,
		MedianGapDays:     medianGap,
		MonthlyEquivalent: monthlyEquivalent,
		FirstSeen:         dates[0],
		LastSeen:          dates[len(dates)-1],
	}, true
}
