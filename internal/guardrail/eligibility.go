package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Credit score estimation. The adjustments are cumulative and independent,
// except the utilization tiers, which apply the single worst tier only.
const (
	baseCreditScore        = 650
	severeUtilizationDebit = 80
	criticalUtilDebit      = 50
	highUtilizationDebit   = 20
	interestChargesDebit   = 30
	minimumPaymentDebit    = 20
	overdueDebit           = 100
	minCreditScore         = 300
	maxCreditScore         = 850
)

// predatoryTerms is the fixed denylist of lending products we never
// recommend, regardless of every other eligibility criterion.
var predatoryTerms = []string{
	"payday loan",
	"title loan",
	"cash advance loan",
	"rent-to-own",
	"guaranteed approval",
	"no credit check",
	"debt settlement",
}

// Eligibility is the blocking per-candidate gate. A rejection is scoped to
// one candidate; the caller continues with the rest.
type Eligibility struct {
	store  service.Storage
	logger *slog.Logger
}

// NewEligibility creates the eligibility gate over the given store. The
// store is consulted only for the blocked-if account check; everything
// quantitative comes from the caller's signal windows.
func NewEligibility(store service.Storage) *Eligibility {
	return &Eligibility{
		store:  store,
		logger: slog.Default().With("component", "guardrail.eligibility"),
	}
}

// Check evaluates one candidate. Rejections return a failed
// GuardrailResult together with an EligibilityError carrying the reason;
// store failures propagate as ordinary errors. Checks run in a fixed
// order: harmful-product denylist, blocked-if account holdings, then the
// quantitative income and credit-score filters. Missing financial data on
// a quantitative check means ineligible, never eligible by default.
func (e *Eligibility) Check(ctx context.Context, candidate model.Candidate, userID string, signals model.SignalWindows) (model.GuardrailResult, error) {
	result := model.GuardrailResult{
		Gate:        model.GateEligibility,
		Blocking:    true,
		EvaluatedAt: time.Now(),
	}

	offer := candidate.Offer

	if term := matchPredatoryTerm(offer.Title, candidate.Content); term != "" {
		result.Explanation = fmt.Sprintf("offer content contains the restricted product term %q", term)
		return e.reject(result, offer.ID)
	}

	if len(offer.BlockedIf) > 0 {
		held, err := e.blockedSubtypeHeld(ctx, userID, offer.BlockedIf)
		if err != nil {
			result.Explanation = "account lookup failed"
			return result, err
		}
		if held != "" {
			result.Explanation = fmt.Sprintf("user already holds a %s account", held)
			return e.reject(result, offer.ID)
		}
	}

	if offer.MinIncome > 0 {
		income := incomeSignals(signals)
		if income == nil || income.DepositCount == 0 {
			result.Explanation = "Income information is not available."
			return e.reject(result, offer.ID)
		}
		monthly := estimateMonthlyIncome(income)
		if monthly < offer.MinIncome {
			result.Explanation = fmt.Sprintf("estimated monthly income $%.2f is below the required $%.2f", monthly, offer.MinIncome)
			return e.reject(result, offer.ID)
		}
	}

	if offer.MinCreditScore > 0 {
		credit := creditSignals(signals)
		if credit == nil || len(credit.Cards) == 0 {
			result.Explanation = "Credit information is not available."
			return e.reject(result, offer.ID)
		}
		score := float64(EstimateCreditScore(credit))
		result.Score = &score
		if int(score) < offer.MinCreditScore {
			result.Explanation = fmt.Sprintf("estimated credit score %d is below the required %d", int(score), offer.MinCreditScore)
			return e.reject(result, offer.ID)
		}
	}

	result.Passed = true
	result.Explanation = "all eligibility criteria satisfied"
	return result, nil
}

func (e *Eligibility) reject(result model.GuardrailResult, offerID string) (model.GuardrailResult, error) {
	e.logger.Info("Offer rejected",
		"offer_id", offerID,
		"reason", result.Explanation)
	return result, common.NewEligibilityError(offerID, result.Explanation)
}

func (e *Eligibility) blockedSubtypeHeld(ctx context.Context, userID string, blocked []model.AccountSubtype) (model.AccountSubtype, error) {
	accounts, err := e.store.GetAccounts(ctx, userID, service.AccountFilter{Subtypes: blocked})
	if err != nil {
		return "", fmt.Errorf("failed to query accounts for user %s: %w", userID, err)
	}
	if len(accounts) > 0 {
		return accounts[0].Subtype, nil
	}
	return "", nil
}

func matchPredatoryTerm(title, content string) string {
	text := strings.ToLower(title + " " + content)
	for _, term := range predatoryTerms {
		if strings.Contains(text, term) {
			return term
		}
	}
	return ""
}

// incomeSignals prefers the long window, which covers the trailing six
// months the income estimate is defined over.
func incomeSignals(w model.SignalWindows) *model.IncomeSignals {
	if w.Long.Income != nil {
		return w.Long.Income
	}
	return w.Short.Income
}

func creditSignals(w model.SignalWindows) *model.CreditSignals {
	if w.Long.Credit != nil {
		return w.Long.Credit
	}
	return w.Short.Credit
}

// estimateMonthlyIncome normalizes the window's payroll deposit total to a
// monthly figure.
func estimateMonthlyIncome(income *model.IncomeSignals) float64 {
	if income.WindowDays <= 0 {
		return 0
	}
	return income.TotalDeposits / (float64(income.WindowDays) / 30.0)
}

// EstimateCreditScore derives a rough score from credit signals alone. The
// worst utilization tier applies once; the remaining adjustments stack.
func EstimateCreditScore(credit *model.CreditSignals) int {
	score := baseCreditScore

	switch {
	case credit.HasCardAtOrAbove(80):
		score -= severeUtilizationDebit
	case credit.HasCardAtOrAbove(50):
		score -= criticalUtilDebit
	case credit.HasCardAtOrAbove(30):
		score -= highUtilizationDebit
	}

	if credit.HasInterestCharges() {
		score -= interestChargesDebit
	}
	if credit.HasMinimumPaymentOnly() {
		score -= minimumPaymentDebit
	}
	if credit.HasOverdueCard() {
		score -= overdueDebit
	}

	if score < minCreditScore {
		score = minCreditScore
	}
	if score > maxCreditScore {
		score = maxCreditScore
	}
	return score
}
