package signal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Payment frequency gap boundaries, in days.
const (
	gapWeeklyDays    = 7
	gapBiweeklyDays  = 18
	gapMonthlyDays   = 35
	gapIrregularDays = 45
)

// Variability (coefficient of variation) boundaries, in percent.
const (
	variabilityMediumPct = 5
	variabilityHighPct   = 15
)

// minBufferMonths is the cash-flow buffer below which income is
// considered at risk.
const minBufferMonths = 1.0

var payrollPattern = regexp.MustCompile(`(?i)\b(DIRECTDEP|DIRECT\s*DEP|DIR\s*DEP|PAYROLL|SALARY|WAGES|PAYCHECK)\b`)

// IncomeDetector computes pay cadence, variability, and cash-flow buffer
// signals from payroll deposits into checking accounts.
type IncomeDetector struct {
	store  service.Storage
	logger *slog.Logger
}

// NewIncomeDetector creates an income detector backed by the given store.
func NewIncomeDetector(store service.Storage) *IncomeDetector {
	return &IncomeDetector{
		store:  store,
		logger: slog.Default().With("component", "signal.income"),
	}
}

// Category returns the detector's signal category.
func (d *IncomeDetector) Category() model.SignalCategory {
	return model.SignalIncome
}

// CalculateSignals computes the income bundle for one user and window.
// A user without checking accounts gets an empty bundle, not an error.
func (d *IncomeDetector) CalculateSignals(ctx context.Context, userID string, window Window) (*model.IncomeSignals, error) {
	accounts, err := d.store.GetAccounts(ctx, userID, service.AccountFilter{
		Subtypes: []model.AccountSubtype{model.SubtypeChecking},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query checking accounts: %w", err)
	}

	signals := &model.IncomeSignals{
		WindowDays:       window.Days,
		ComputedAt:       window.End,
		PaymentFrequency: model.FrequencyUnknown,
		VariabilityLevel: model.VariabilityLow,
	}

	if len(accounts) == 0 {
		return signals, nil
	}

	accountIDs := make([]string, len(accounts))
	for i, a := range accounts {
		accountIDs[i] = a.ID
		signals.CurrentBalance += a.CurrentBalance
	}

	transactions, err := d.store.GetTransactions(ctx, userID, service.TransactionFilter{
		AccountIDs: accountIDs,
		StartDate:  &window.Start,
		EndDate:    &window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query checking transactions: %w", err)
	}

	deposits := payrollDeposits(transactions)
	signals.DepositCount = len(deposits)

	amounts := make([]float64, len(deposits))
	dates := make([]time.Time, len(deposits))
	for i, t := range deposits {
		amounts[i] = t.Amount
		dates[i] = t.Date
		signals.TotalDeposits += t.Amount
	}

	signals.MedianDayGap = median(dayGaps(dates))
	if len(deposits) >= 2 {
		signals.PaymentFrequency = classifyFrequency(signals.MedianDayGap)
	}

	signals.PaymentVariability = coefficientOfVariation(amounts)
	signals.VariabilityLevel = classifyVariability(signals.PaymentVariability)

	signals.AverageMonthlyExpense = averageMonthlyExpense(transactions, window)
	signals.EstimatedMinBalance = estimateMinimumBalance(signals.CurrentBalance, transactions)
	if signals.AverageMonthlyExpense > 0 {
		signals.CashFlowBufferMonths = (signals.CurrentBalance - signals.EstimatedMinBalance) / signals.AverageMonthlyExpense
	}

	d.applyVariableIncomeFlag(signals)

	d.logger.Debug("Computed income signals",
		"user_id", userID,
		"window_days", window.Days,
		"deposits", signals.DepositCount,
		"frequency", signals.PaymentFrequency,
		"buffer_months", signals.CashFlowBufferMonths)

	return signals, nil
}

// applyVariableIncomeFlag sets the variable-income flag when at least one
// risk reason holds, with confidence scaled by how many reasons fired.
func (d *IncomeDetector) applyVariableIncomeFlag(s *model.IncomeSignals) {
	var reasons []string

	if s.PaymentFrequency == model.FrequencyVariable || s.MedianDayGap > gapIrregularDays {
		reasons = append(reasons, fmt.Sprintf("median pay gap %.1f days exceeds %d days", s.MedianDayGap, gapIrregularDays))
	}
	if s.PaymentVariability >= variabilityHighPct {
		reasons = append(reasons, fmt.Sprintf("deposit variability %.1f%% is high", s.PaymentVariability))
	}
	// A zero average expense means the buffer could not be computed, so it
	// cannot count as a risk reason.
	if s.AverageMonthlyExpense > 0 && s.CashFlowBufferMonths < minBufferMonths {
		reasons = append(reasons, fmt.Sprintf("cash-flow buffer %.1f months is below %.1f", s.CashFlowBufferMonths, minBufferMonths))
	}

	s.Reasons = reasons
	s.IsVariableIncome = len(reasons) >= 1

	switch len(reasons) {
	case 0:
		s.Confidence = ""
	case 1:
		s.Confidence = "low"
	case 2:
		s.Confidence = "medium"
	default:
		s.Confidence = "high"
	}
}

// payrollDeposits filters to payroll-tagged deposits, sorted by date
// ascending.
func payrollDeposits(transactions []model.Transaction) []model.Transaction {
	deposits := make([]model.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if isPayrollDeposit(t) {
			deposits = append(deposits, t)
		}
	}

	sort.Slice(deposits, func(i, j int) bool {
		return deposits[i].Date.Before(deposits[j].Date)
	})

	return deposits
}

// isPayrollDeposit reports whether a transaction is a payroll-tagged
// deposit.
func isPayrollDeposit(t model.Transaction) bool {
	if t.Amount <= 0 {
		return false
	}

	detailed := strings.ToLower(t.CategoryDetailed)
	primary := strings.ToLower(t.CategoryPrimary)
	if strings.Contains(detailed, "payroll") || strings.Contains(detailed, "wages") {
		return true
	}
	if primary == "income" && payrollPattern.MatchString(t.Name) {
		return true
	}

	return payrollPattern.MatchString(t.Name) || payrollPattern.MatchString(t.MerchantName)
}

// classifyFrequency buckets a median day gap.
func classifyFrequency(medianGap float64) model.PaymentFrequency {
	switch {
	case medianGap <= gapWeeklyDays:
		return model.FrequencyWeekly
	case medianGap <= gapBiweeklyDays:
		return model.FrequencyBiweekly
	case medianGap <= gapMonthlyDays:
		return model.FrequencyMonthly
	case medianGap <= gapIrregularDays:
		return model.FrequencyIrregular
	default:
		return model.FrequencyVariable
	}
}

// classifyVariability buckets a coefficient of variation percentage.
func classifyVariability(cv float64) model.VariabilityLevel {
	switch {
	case cv >= variabilityHighPct:
		return model.VariabilityHigh
	case cv >= variabilityMediumPct:
		return model.VariabilityMedium
	default:
		return model.VariabilityLow
	}
}

// averageMonthlyExpense totals expenses in-window and normalizes to a
// 30-day month.
func averageMonthlyExpense(transactions []model.Transaction, window Window) float64 {
	total := 0.0
	for _, t := range transactions {
		if t.IsExpense() {
			total += math.Abs(t.Amount)
		}
	}
	months := window.Months()
	if months <= 0 {
		return 0
	}
	return total / months
}

// estimateMinimumBalance walks the window's transactions backward from the
// current balance to approximate the minimum balance reached. Point-in-time
// balance history is not modeled, so this is an approximation from net
// flow, not a true historical minimum.
func estimateMinimumBalance(currentBalance float64, transactions []model.Transaction) float64 {
	sorted := make([]model.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	minBalance := currentBalance
	running := currentBalance
	for _, t := range sorted {
		// Balance before this transaction posted.
		running -= t.Amount
		if running < minBalance {
			minBalance = running
		}
	}

	return minBalance
}
