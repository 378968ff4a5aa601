package persona

import (
	"fmt"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Classification thresholds.
const (
	highUtilizationPct    = 50
	anyCardUtilizationPct = 30
	variableGapDays       = 45
	minBufferMonths       = 1.0
	minRecurringMerchants = 3
	minRecurringSpend     = 50
	minSubscriptionShare  = 10
	minSavingsGrowthPct   = 2
	minMonthlyInflow      = 200
)

// match is a satisfied rule: the rationale text and the criteria that
// triggered it.
type match struct {
	rationale string
	criteria  []string
}

// rule is one entry in the priority chain. Evaluate returns nil when the
// rule does not apply.
type rule struct {
	evaluate func(w model.SignalWindows) *match
	persona  model.PersonaID
}

// rules is the strict priority chain: the first matching rule wins and
// later rules are never evaluated.
var rules = []rule{
	{persona: model.PersonaHighUtilization, evaluate: evaluateHighUtilization},
	{persona: model.PersonaVariableIncome, evaluate: evaluateVariableIncome},
	{persona: model.PersonaSubscriptionHeavy, evaluate: evaluateSubscriptionHeavy},
	{persona: model.PersonaSavingsBuilder, evaluate: evaluateSavingsBuilder},
	{persona: model.PersonaBalanced, evaluate: evaluateBalanced},
}

// creditSignals prefers the long window's credit bundle, falling back to
// the short window. The long window sees more payment history.
func creditSignals(w model.SignalWindows) *model.CreditSignals {
	if w.Long.Credit != nil {
		return w.Long.Credit
	}
	return w.Short.Credit
}

func incomeSignals(w model.SignalWindows) *model.IncomeSignals {
	if w.Long.Income != nil {
		return w.Long.Income
	}
	return w.Short.Income
}

func savingsSignals(w model.SignalWindows) *model.SavingsSignals {
	if w.Long.Savings != nil {
		return w.Long.Savings
	}
	return w.Short.Savings
}

func subscriptionSignals(w model.SignalWindows) *model.SubscriptionSignals {
	if w.Long.Subscriptions != nil {
		return w.Long.Subscriptions
	}
	return w.Short.Subscriptions
}

// evaluateHighUtilization matches when any card is at >=50% utilization,
// accrued interest, shows a minimum-payment-only pattern, or is overdue.
// Every triggered reason is concatenated into the rationale with its
// supporting numbers.
func evaluateHighUtilization(w model.SignalWindows) *match {
	credit := creditSignals(w)
	if credit == nil {
		return nil
	}

	var reasons []string
	var criteria []string

	for _, card := range credit.Cards {
		if card.Utilization >= highUtilizationPct {
			reasons = append(reasons, fmt.Sprintf("%s is at %.1f%% utilization", card.AccountName, card.Utilization))
			criteria = appendOnce(criteria, "card_utilization_at_or_above_50pct")
		}
	}
	for _, card := range credit.Cards {
		if card.InterestCharges > 0 {
			reasons = append(reasons, fmt.Sprintf("%s accrued $%.2f in interest charges", card.AccountName, card.InterestCharges))
			criteria = appendOnce(criteria, "interest_charges_present")
		}
	}
	for _, card := range credit.Cards {
		if card.MinimumPaymentOnly {
			reasons = append(reasons, fmt.Sprintf("%s shows a minimum-payment-only pattern", card.AccountName))
			criteria = appendOnce(criteria, "minimum_payment_only_pattern")
		}
	}
	for _, card := range credit.Cards {
		if card.IsOverdue {
			reasons = append(reasons, fmt.Sprintf("%s is overdue", card.AccountName))
			criteria = appendOnce(criteria, "overdue_card")
		}
	}

	if len(reasons) == 0 {
		return nil
	}

	return &match{
		rationale: "Credit usage needs attention: " + strings.Join(reasons, "; ") + ".",
		criteria:  criteria,
	}
}

// evaluateVariableIncome matches only when BOTH the median pay gap exceeds
// 45 days AND the cash-flow buffer is under one month.
func evaluateVariableIncome(w model.SignalWindows) *match {
	income := incomeSignals(w)
	if income == nil {
		return nil
	}

	if income.MedianDayGap <= variableGapDays {
		return nil
	}
	if income.CashFlowBufferMonths >= minBufferMonths || income.AverageMonthlyExpense <= 0 {
		return nil
	}

	return &match{
		rationale: fmt.Sprintf(
			"Income arrives irregularly (median gap %.0f days) and the cash-flow buffer covers only %.1f months of expenses.",
			income.MedianDayGap, income.CashFlowBufferMonths),
		criteria: []string{"median_pay_gap_over_45d", "cash_flow_buffer_below_1_month"},
	}
}

// evaluateSubscriptionHeavy matches only when the recurring-merchant count
// is at least 3 AND (monthly recurring spend >= $50 OR subscription share
// >= 10%).
func evaluateSubscriptionHeavy(w model.SignalWindows) *match {
	subs := subscriptionSignals(w)
	if subs == nil {
		return nil
	}

	if subs.Count < minRecurringMerchants {
		return nil
	}
	spendMet := subs.MonthlyRecurringSpend >= minRecurringSpend
	shareMet := subs.SharePercent >= minSubscriptionShare
	if !spendMet && !shareMet {
		return nil
	}

	criteria := []string{"recurring_merchants_at_least_3"}
	if spendMet {
		criteria = append(criteria, "monthly_recurring_spend_at_least_50")
	}
	if shareMet {
		criteria = append(criteria, "subscription_share_at_least_10pct")
	}

	return &match{
		rationale: fmt.Sprintf(
			"%d recurring merchants total $%.2f/month (%.1f%% of spending).",
			subs.Count, subs.MonthlyRecurringSpend, subs.SharePercent),
		criteria: criteria,
	}
}

// evaluateSavingsBuilder matches only when savings are growing (growth >=
// 2% OR net monthly inflow >= $200) AND no card anywhere is at or above
// 30% utilization.
func evaluateSavingsBuilder(w model.SignalWindows) *match {
	savings := savingsSignals(w)
	if savings == nil {
		return nil
	}

	growthMet := savings.GrowthRate >= minSavingsGrowthPct
	inflowMet := savings.NetMonthlyInflow >= minMonthlyInflow
	if !growthMet && !inflowMet {
		return nil
	}

	if credit := creditSignals(w); credit != nil && credit.HasCardAtOrAbove(anyCardUtilizationPct) {
		return nil
	}

	criteria := []string{"no_card_at_or_above_30pct_utilization"}
	if growthMet {
		criteria = append(criteria, "savings_growth_at_least_2pct")
	}
	if inflowMet {
		criteria = append(criteria, "net_monthly_inflow_at_least_200")
	}

	return &match{
		rationale: fmt.Sprintf(
			"Savings grew %.1f%% with a net inflow of $%.2f/month while credit cards stayed lightly used.",
			savings.GrowthRate, savings.NetMonthlyInflow),
		criteria: criteria,
	}
}

// evaluateBalanced is the default fallback and always matches.
func evaluateBalanced(_ model.SignalWindows) *match {
	return &match{
		rationale: "No specific behavioral criteria were met; the profile is balanced.",
		criteria:  []string{},
	}
}

// appendOnce appends v only if it is not already present, keeping the
// criteria list free of duplicates when several cards trigger the same
// condition.
func appendOnce(criteria []string, v string) []string {
	for _, existing := range criteria {
		if existing == v {
			return criteria
		}
	}
	return append(criteria, v)
}
