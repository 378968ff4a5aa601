package signal

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// emergencyFundReferenceDays is the fixed expense reference window for
// emergency-fund coverage, independent of the signal window.
const emergencyFundReferenceDays = 90

// SavingsDetector computes savings inflow, growth, and emergency-fund
// coverage from savings, money-market, and HSA accounts.
type SavingsDetector struct {
	store  service.Storage
	logger *slog.Logger
}

// NewSavingsDetector creates a savings detector backed by the given store.
func NewSavingsDetector(store service.Storage) *SavingsDetector {
	return &SavingsDetector{
		store:  store,
		logger: slog.Default().With("component", "signal.savings"),
	}
}

// Category returns the detector's signal category.
func (d *SavingsDetector) Category() model.SignalCategory {
	return model.SignalSavings
}

// CalculateSignals computes the savings bundle for one user and window.
// A user without savings-type accounts gets an empty bundle, not an error.
func (d *SavingsDetector) CalculateSignals(ctx context.Context, userID string, window Window) (*model.SavingsSignals, error) {
	accounts, err := d.store.GetAccounts(ctx, userID, service.AccountFilter{
		Subtypes: []model.AccountSubtype{model.SubtypeSavings, model.SubtypeMoneyMarket, model.SubtypeHSA},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query savings accounts: %w", err)
	}

	signals := &model.SavingsSignals{
		WindowDays:   window.Days,
		ComputedAt:   window.End,
		AccountCount: len(accounts),
	}

	if len(accounts) == 0 {
		return signals, nil
	}

	accountIDs := make([]string, len(accounts))
	for i, a := range accounts {
		accountIDs[i] = a.ID
		signals.TotalBalance += a.CurrentBalance
	}

	transactions, err := d.store.GetTransactions(ctx, userID, service.TransactionFilter{
		AccountIDs: accountIDs,
		StartDate:  &window.Start,
		EndDate:    &window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query savings transactions: %w", err)
	}

	for _, t := range transactions {
		if t.IsDeposit() {
			signals.Deposits += t.Amount
		} else {
			signals.Withdrawals += math.Abs(t.Amount)
		}
	}
	signals.NetInflow = signals.Deposits - signals.Withdrawals
	if months := window.Months(); months > 0 {
		signals.NetMonthlyInflow = signals.NetInflow / months
	}

	// Previous balance is approximated backward from the current balance
	// and the window's net flow; balance history is not modeled.
	previous := signals.TotalBalance - signals.NetInflow
	if previous > 0 {
		signals.GrowthRate = (signals.TotalBalance - previous) / previous * 100
	}

	monthlyExpense, err := d.referenceMonthlyExpense(ctx, userID, window)
	if err != nil {
		return nil, err
	}
	if monthlyExpense > 0 {
		signals.EmergencyFundMonths = signals.TotalBalance / monthlyExpense
	}

	d.logger.Debug("Computed savings signals",
		"user_id", userID,
		"window_days", window.Days,
		"net_inflow", signals.NetInflow,
		"growth_rate", signals.GrowthRate,
		"emergency_fund_months", signals.EmergencyFundMonths)

	return signals, nil
}

// referenceMonthlyExpense averages the user's expenses across all accounts
// over the fixed 90-day reference window ending at the signal window's
// anchor.
func (d *SavingsDetector) referenceMonthlyExpense(ctx context.Context, userID string, window Window) (float64, error) {
	reference := NewWindow(window.End, emergencyFundReferenceDays)

	transactions, err := d.store.GetTransactions(ctx, userID, service.TransactionFilter{
		StartDate: &reference.Start,
		EndDate:   &reference.End,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query reference-window transactions: %w", err)
	}

	return averageMonthlyExpense(transactions, reference), nil
}
