package signal

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkingAccount(id, userID string, balance float64) model.Account {
	return model.Account{
		ID:             id,
		UserID:         userID,
		Name:           "Everyday Checking",
		Type:           model.AccountTypeDepository,
		Subtype:        model.SubtypeChecking,
		CurrentBalance: balance,
	}
}

func payroll(id string, amount float64, date time.Time) model.Transaction {
	return model.Transaction{
		ID:               id,
		UserID:           "user-1",
		AccountID:        "chk-1",
		Amount:           amount,
		Name:             "ACME CORP PAYROLL",
		CategoryPrimary:  "income",
		CategoryDetailed: "income wages payroll",
		Date:             date,
	}
}

func TestIncomeDetector_PaymentFrequency(t *testing.T) {
	tests := []struct {
		name    string
		gapDays int
		want    model.PaymentFrequency
	}{
		{name: "weekly", gapDays: 7, want: model.FrequencyWeekly},
		{name: "biweekly", gapDays: 14, want: model.FrequencyBiweekly},
		{name: "monthly", gapDays: 30, want: model.FrequencyMonthly},
		{name: "irregular", gapDays: 40, want: model.FrequencyIrregular},
		{name: "variable", gapDays: 50, want: model.FrequencyVariable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStorage().WithConsent("user-1", true)
			store.Accounts = []model.Account{checkingAccount("chk-1", "user-1", 3000)}
			for i := 0; i < 3; i++ {
				store.Transactions = append(store.Transactions,
					payroll("dep"+string(rune('0'+i)), 2000, testNow.AddDate(0, 0, -tt.gapDays*(3-i))))
			}

			detector := NewIncomeDetector(store)
			signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 180))
			require.NoError(t, err)

			assert.Equal(t, 3, signals.DepositCount)
			assert.InDelta(t, float64(tt.gapDays), signals.MedianDayGap, 0.001)
			assert.Equal(t, tt.want, signals.PaymentFrequency)
		})
	}
}

func TestIncomeDetector_NoPayroll(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{checkingAccount("chk-1", "user-1", 3000)}
	store.Transactions = []model.Transaction{
		{ID: "t1", UserID: "user-1", AccountID: "chk-1", Amount: -45, Name: "GROCERY STORE", Date: testNow.AddDate(0, 0, -10)},
	}

	detector := NewIncomeDetector(store)
	signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 180))

	require.NoError(t, err, "no payroll history must be a valid zero-result")
	assert.Zero(t, signals.DepositCount)
	assert.Equal(t, model.FrequencyUnknown, signals.PaymentFrequency)
	assert.Zero(t, signals.TotalDeposits)
}

func TestIncomeDetector_NoCheckingAccounts(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)

	detector := NewIncomeDetector(store)
	signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 30))

	require.NoError(t, err)
	assert.Zero(t, signals.DepositCount)
	assert.Zero(t, signals.CurrentBalance)
}

func TestIncomeDetector_Variability(t *testing.T) {
	tests := []struct {
		name    string
		amounts []float64
		want    model.VariabilityLevel
	}{
		{name: "steady salary is low", amounts: []float64{2000, 2000, 2000, 2000}, want: model.VariabilityLow},
		{name: "small swings are medium", amounts: []float64{2000, 2400, 2000, 2400}, want: model.VariabilityMedium},
		{name: "gig income is high", amounts: []float64{800, 2500, 1200, 3100}, want: model.VariabilityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStorage().WithConsent("user-1", true)
			store.Accounts = []model.Account{checkingAccount("chk-1", "user-1", 5000)}
			for i, amount := range tt.amounts {
				store.Transactions = append(store.Transactions,
					payroll("dep"+string(rune('0'+i)), amount, testNow.AddDate(0, 0, -14*(len(tt.amounts)-i))))
			}

			detector := NewIncomeDetector(store)
			signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 180))
			require.NoError(t, err)

			assert.Equal(t, tt.want, signals.VariabilityLevel)
		})
	}
}

func TestIncomeDetector_CashFlowBuffer(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{checkingAccount("chk-1", "user-1", 3000)}
	store.Transactions = []model.Transaction{
		payroll("dep1", 2000, testNow.AddDate(0, 0, -20)),
		// 1000/month of expenses over a 30-day window.
		{ID: "e1", UserID: "user-1", AccountID: "chk-1", Amount: -600, Name: "RENT", Date: testNow.AddDate(0, 0, -15)},
		{ID: "e2", UserID: "user-1", AccountID: "chk-1", Amount: -400, Name: "UTILITIES", Date: testNow.AddDate(0, 0, -5)},
	}

	detector := NewIncomeDetector(store)
	signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 30))
	require.NoError(t, err)

	assert.InDelta(t, 1000, signals.AverageMonthlyExpense, 0.001)

	// Walking backward from 3000: before e2 the balance was 3400, before
	// e1 it was 4000, and before dep1 it was 2000, the estimated minimum.
	assert.InDelta(t, 2000, signals.EstimatedMinBalance, 0.001)
	assert.InDelta(t, 1.0, signals.CashFlowBufferMonths, 0.001)
}

func TestIncomeDetector_VariableIncomeFlag(t *testing.T) {
	t.Run("steady income is not flagged", func(t *testing.T) {
		store := testutil.NewMockStorage().WithConsent("user-1", true)
		store.Accounts = []model.Account{checkingAccount("chk-1", "user-1", 10000)}
		for i := 0; i < 6; i++ {
			store.Transactions = append(store.Transactions,
				payroll("dep"+string(rune('0'+i)), 2000, testNow.AddDate(0, 0, -14*(6-i))))
		}

		detector := NewIncomeDetector(store)
		signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 180))
		require.NoError(t, err)

		assert.False(t, signals.IsVariableIncome)
		assert.Empty(t, signals.Reasons)
		assert.Empty(t, signals.Confidence)
	})

	t.Run("sparse and volatile income is flagged with confidence", func(t *testing.T) {
		store := testutil.NewMockStorage().WithConsent("user-1", true)
		store.Accounts = []model.Account{checkingAccount("chk-1", "user-1", 500)}
		store.Transactions = []model.Transaction{
			payroll("dep1", 900, testNow.AddDate(0, 0, -160)),
			payroll("dep2", 3200, testNow.AddDate(0, 0, -100)),
			payroll("dep3", 1500, testNow.AddDate(0, 0, -40)),
			{ID: "e1", UserID: "user-1", AccountID: "chk-1", Amount: -12000, Name: "RENT", Date: testNow.AddDate(0, 0, -90)},
		}

		detector := NewIncomeDetector(store)
		signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 180))
		require.NoError(t, err)

		// Gap 60d > 45d, CV across 900/3200/1500 is high, and the buffer
		// is thin: all three reasons fire.
		assert.True(t, signals.IsVariableIncome)
		assert.Len(t, signals.Reasons, 3)
		assert.Equal(t, "high", signals.Confidence)
	})
}

func TestIncomeDetector_PendingExcluded(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{checkingAccount("chk-1", "user-1", 3000)}
	pending := payroll("dep1", 2000, testNow.AddDate(0, 0, -5))
	pending.Pending = true
	store.Transactions = []model.Transaction{pending}

	detector := NewIncomeDetector(store)
	signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 30))
	require.NoError(t, err)

	assert.Zero(t, signals.DepositCount, "pending transactions are excluded from all signal computation")
}
