package model

import "time"

// SignalCategory identifies one of the four signal detectors.
type SignalCategory string

const (
	SignalCredit       SignalCategory = "credit"
	SignalIncome       SignalCategory = "income"
	SignalSavings      SignalCategory = "savings"
	SignalSubscription SignalCategory = "subscription"
)

// Signal window lengths, in days. Both windows are anchored to a single
// "now" snapshot taken once per classification call.
const (
	WindowShortDays = 30
	WindowLongDays  = 180
)

// UtilizationLevel buckets a card's utilization percentage.
type UtilizationLevel string

const (
	UtilizationLow      UtilizationLevel = "low"      // < 30%
	UtilizationHigh     UtilizationLevel = "high"     // 30-50%
	UtilizationCritical UtilizationLevel = "critical" // 50-80%
	UtilizationSevere   UtilizationLevel = "severe"   // >= 80%
)

// CardSignal is the per-card detail inside a CreditSignals bundle.
type CardSignal struct {
	AccountID          string           `json:"account_id"`
	AccountName        string           `json:"account_name"`
	Balance            float64          `json:"balance"`
	Limit              float64          `json:"limit"`
	Utilization        float64          `json:"utilization"`
	UtilizationLevel   UtilizationLevel `json:"utilization_level"`
	InterestCharges    float64          `json:"interest_charges"`
	MinimumPaymentOnly bool             `json:"minimum_payment_only"`
	IsOverdue          bool             `json:"is_overdue"`
}

// CreditSignals is the credit detector's window-scoped result. Immutable
// once produced; recomputation always builds a fresh bundle.
type CreditSignals struct {
	ComputedAt         time.Time    `json:"computed_at"`
	Cards              []CardSignal `json:"cards"`
	WindowDays         int          `json:"window_days"`
	AverageUtilization float64      `json:"average_utilization"`
	TotalBalance       float64      `json:"total_balance"`
	TotalLimit         float64      `json:"total_limit"`
}

// MaxUtilization returns the highest single-card utilization, or 0 when
// the user holds no credit cards.
func (c *CreditSignals) MaxUtilization() float64 {
	max := 0.0
	for _, card := range c.Cards {
		if card.Utilization > max {
			max = card.Utilization
		}
	}
	return max
}

// HasCardAtOrAbove reports whether any card's utilization meets the
// given percentage.
func (c *CreditSignals) HasCardAtOrAbove(pct float64) bool {
	for _, card := range c.Cards {
		if card.Utilization >= pct {
			return true
		}
	}
	return false
}

// HasInterestCharges reports whether any card accrued interest in-window.
func (c *CreditSignals) HasInterestCharges() bool {
	for _, card := range c.Cards {
		if card.InterestCharges > 0 {
			return true
		}
	}
	return false
}

// HasMinimumPaymentOnly reports whether any card shows a minimum-payment-only
// pattern.
func (c *CreditSignals) HasMinimumPaymentOnly() bool {
	for _, card := range c.Cards {
		if card.MinimumPaymentOnly {
			return true
		}
	}
	return false
}

// HasOverdueCard reports whether any card is overdue.
func (c *CreditSignals) HasOverdueCard() bool {
	for _, card := range c.Cards {
		if card.IsOverdue {
			return true
		}
	}
	return false
}

// PaymentFrequency classifies the cadence of payroll deposits.
type PaymentFrequency string

const (
	FrequencyWeekly    PaymentFrequency = "weekly"    // median gap <= 7d
	FrequencyBiweekly  PaymentFrequency = "biweekly"  // <= 18d
	FrequencyMonthly   PaymentFrequency = "monthly"   // <= 35d
	FrequencyIrregular PaymentFrequency = "irregular" // <= 45d
	FrequencyVariable  PaymentFrequency = "variable"  // > 45d
	FrequencyUnknown   PaymentFrequency = "unknown"   // fewer than two deposits
)

// VariabilityLevel buckets the coefficient of variation of deposit amounts.
type VariabilityLevel string

const (
	VariabilityLow    VariabilityLevel = "low"    // CV < 5%
	VariabilityMedium VariabilityLevel = "medium" // CV < 15%
	VariabilityHigh   VariabilityLevel = "high"   // CV >= 15%
)

// IncomeSignals is the income detector's window-scoped result.
type IncomeSignals struct {
	ComputedAt            time.Time        `json:"computed_at"`
	PaymentFrequency      PaymentFrequency `json:"payment_frequency"`
	VariabilityLevel      VariabilityLevel `json:"variability_level"`
	Confidence            string           `json:"confidence"`
	Reasons               []string         `json:"reasons,omitempty"`
	WindowDays            int              `json:"window_days"`
	DepositCount          int              `json:"deposit_count"`
	TotalDeposits         float64          `json:"total_deposits"`
	MedianDayGap          float64          `json:"median_day_gap"`
	PaymentVariability    float64          `json:"payment_variability"`
	CurrentBalance        float64          `json:"current_balance"`
	EstimatedMinBalance   float64          `json:"estimated_min_balance"`
	AverageMonthlyExpense float64          `json:"average_monthly_expense"`
	CashFlowBufferMonths  float64          `json:"cash_flow_buffer_months"`
	IsVariableIncome      bool             `json:"is_variable_income"`
}

// SavingsSignals is the savings detector's window-scoped result.
type SavingsSignals struct {
	ComputedAt          time.Time `json:"computed_at"`
	WindowDays          int       `json:"window_days"`
	AccountCount        int       `json:"account_count"`
	TotalBalance        float64   `json:"total_balance"`
	Deposits            float64   `json:"deposits"`
	Withdrawals         float64   `json:"withdrawals"`
	NetInflow           float64   `json:"net_inflow"`
	NetMonthlyInflow    float64   `json:"net_monthly_inflow"`
	GrowthRate          float64   `json:"growth_rate"`
	EmergencyFundMonths float64   `json:"emergency_fund_months"`
}

// Cadence is the recurrence interval inferred for a recurring merchant.
type Cadence string

const (
	CadenceWeekly  Cadence = "weekly"  // median gap <= 10d
	CadenceMonthly Cadence = "monthly" // median gap <= 35d
)

// Subscription is one recurring merchant group.
type Subscription struct {
	FirstSeen         time.Time `json:"first_seen"`
	LastSeen          time.Time `json:"last_seen"`
	MerchantName      string    `json:"merchant_name"`
	MerchantEntityID  string    `json:"merchant_entity_id,omitempty"`
	Cadence           Cadence   `json:"cadence"`
	Occurrences       int       `json:"occurrences"`
	AverageAmount     float64   `json:"average_amount"`
	MedianGapDays     float64   `json:"median_gap_days"`
	MonthlyEquivalent float64   `json:"monthly_equivalent"`
}

// SubscriptionSignals is the subscription detector's window-scoped result.
type SubscriptionSignals struct {
	ComputedAt            time.Time      `json:"computed_at"`
	Subscriptions         []Subscription `json:"subscriptions"`
	WindowDays            int            `json:"window_days"`
	Count                 int            `json:"count"`
	MonthlyRecurringSpend float64        `json:"monthly_recurring_spend"`
	TotalExpenses         float64        `json:"total_expenses"`
	SharePercent          float64        `json:"share_percent"`
}

// SignalSnapshot carries all four categories' bundles for one window. A nil
// field means the category was not computed, not that it was empty.
type SignalSnapshot struct {
	Credit        *CreditSignals       `json:"credit,omitempty"`
	Income        *IncomeSignals       `json:"income,omitempty"`
	Savings       *SavingsSignals      `json:"savings,omitempty"`
	Subscriptions *SubscriptionSignals `json:"subscriptions,omitempty"`
}

// SignalWindows pairs the short and long window snapshots used for one
// classification run. Both windows share a single "now" anchor.
type SignalWindows struct {
	Short SignalSnapshot `json:"signals_30d"`
	Long  SignalSnapshot `json:"signals_180d"`
}
