package signal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Utilization bucket boundaries, in percent.
const (
	utilizationHighPct     = 30
	utilizationCriticalPct = 50
	utilizationSeverePct   = 80
)

// minPaymentTolerance is the relative tolerance when matching a payment
// against the liability's minimum payment amount.
const minPaymentTolerance = 0.10

var (
	paymentPattern  = regexp.MustCompile(`(?i)\b(PAYMENT|PYMT|PMT|AUTOPAY|AUTO\s*PAY|E-?PAYMENT|ONLINE\s*PMT|THANK\s*YOU)\b`)
	interestPattern = regexp.MustCompile(`(?i)\b(INTEREST\s*CHARGE|FINANCE\s*CHARGE|INT\s*CHARGE|PURCHASE\s*INTEREST|INTEREST\s*CHARGED)\b`)
)

// CreditDetector computes credit-card utilization and payment-behavior
// signals from individually held credit cards.
type CreditDetector struct {
	store  service.Storage
	logger *slog.Logger
}

// NewCreditDetector creates a credit detector backed by the given store.
func NewCreditDetector(store service.Storage) *CreditDetector {
	return &CreditDetector{
		store:  store,
		logger: slog.Default().With("component", "signal.credit"),
	}
}

// Category returns the detector's signal category.
func (d *CreditDetector) Category() model.SignalCategory {
	return model.SignalCredit
}

// CalculateSignals computes the credit bundle for one user and window.
// A user without credit cards gets an empty bundle, not an error.
func (d *CreditDetector) CalculateSignals(ctx context.Context, userID string, window Window) (*model.CreditSignals, error) {
	accounts, err := d.store.GetAccounts(ctx, userID, service.AccountFilter{
		Subtypes:       []model.AccountSubtype{model.SubtypeCreditCard},
		HolderCategory: model.HolderIndividual,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query credit card accounts: %w", err)
	}

	signals := &model.CreditSignals{
		WindowDays: window.Days,
		ComputedAt: window.End,
	}

	for _, account := range accounts {
		card, cardErr := d.cardSignal(ctx, userID, account, window)
		if cardErr != nil {
			return nil, cardErr
		}

		signals.Cards = append(signals.Cards, card)
		signals.TotalBalance += account.CurrentBalance
		if account.CreditLimit > 0 {
			signals.TotalLimit += account.CreditLimit
		}
	}

	if signals.TotalLimit > 0 {
		signals.AverageUtilization = signals.TotalBalance / signals.TotalLimit * 100
	}

	d.logger.Debug("Computed credit signals",
		"user_id", userID,
		"window_days", window.Days,
		"cards", len(signals.Cards),
		"average_utilization", signals.AverageUtilization)

	return signals, nil
}

// cardSignal computes the per-card detail for one account.
func (d *CreditDetector) cardSignal(ctx context.Context, userID string, account model.Account, window Window) (model.CardSignal, error) {
	card := model.CardSignal{
		AccountID:   account.ID,
		AccountName: account.Name,
		Balance:     account.CurrentBalance,
		Limit:       account.CreditLimit,
	}

	card.Utilization = utilization(account.CurrentBalance, account.CreditLimit)
	card.UtilizationLevel = utilizationLevel(card.Utilization)

	liability, err := d.store.GetLiability(ctx, account.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return model.CardSignal{}, fmt.Errorf("failed to query liability for account %s: %w", account.ID, err)
	}

	transactions, err := d.store.GetTransactions(ctx, userID, service.TransactionFilter{
		AccountIDs: []string{account.ID},
		StartDate:  &window.Start,
		EndDate:    &window.End,
	})
	if err != nil {
		return model.CardSignal{}, fmt.Errorf("failed to query transactions for account %s: %w", account.ID, err)
	}

	card.InterestCharges = sumInterestCharges(transactions)

	if liability != nil {
		card.IsOverdue = liability.Overdue(window.End)
		card.MinimumPaymentOnly = detectMinimumPaymentOnly(transactions, liability.MinimumPayment)
	}

	return card, nil
}

// utilization returns balance/limit as a percentage, or 0 when the limit
// is not positive. Cards without a reported limit are never bucketed above
// low.
func utilization(balance, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return balance / limit * 100
}

// utilizationLevel buckets a utilization percentage.
func utilizationLevel(pct float64) model.UtilizationLevel {
	switch {
	case pct >= utilizationSeverePct:
		return model.UtilizationSevere
	case pct >= utilizationCriticalPct:
		return model.UtilizationCritical
	case pct >= utilizationHighPct:
		return model.UtilizationHigh
	default:
		return model.UtilizationLow
	}
}

// isPaymentLike reports whether a transaction looks like a card payment:
// a positive (credit) amount whose category or description matches a
// payment pattern.
func isPaymentLike(t model.Transaction) bool {
	if t.Amount <= 0 {
		return false
	}

	if strings.Contains(strings.ToLower(t.CategoryPrimary), "payment") ||
		strings.Contains(strings.ToLower(t.CategoryDetailed), "payment") {
		return true
	}

	return paymentPattern.MatchString(t.Name) || paymentPattern.MatchString(t.MerchantName)
}

// isInterestCharge reports whether a transaction is an interest or finance
// charge.
func isInterestCharge(t model.Transaction) bool {
	if strings.Contains(strings.ToLower(t.CategoryPrimary), "interest") ||
		strings.Contains(strings.ToLower(t.CategoryDetailed), "interest") {
		return true
	}
	return interestPattern.MatchString(t.Name)
}

// sumInterestCharges totals the absolute amounts of interest-tagged
// transactions.
func sumInterestCharges(transactions []model.Transaction) float64 {
	total := 0.0
	for _, t := range transactions {
		if isInterestCharge(t) {
			total += math.Abs(t.Amount)
		}
	}
	return total
}

// detectMinimumPaymentOnly flags a card when at least 2 of the last 3
// payment-like transactions fall within ±10% of the liability's minimum
// payment.
func detectMinimumPaymentOnly(transactions []model.Transaction, minimumPayment float64) bool {
	if minimumPayment <= 0 {
		return false
	}

	payments := make([]model.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if isPaymentLike(t) {
			payments = append(payments, t)
		}
	}
	if len(payments) < 2 {
		return false
	}

	// Last 3 payments, newest first.
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].Date.After(payments[j].Date)
	})
	if len(payments) > 3 {
		payments = payments[:3]
	}

	nearMinimum := 0
	for _, p := range payments {
		delta := math.Abs(p.Amount-minimumPayment) / minimumPayment
		if delta <= minPaymentTolerance {
			nearMinimum++
		}
	}

	return nearMinimum >= 2
}
