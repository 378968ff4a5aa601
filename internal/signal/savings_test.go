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

func savingsAccount(id, userID string, subtype model.AccountSubtype, balance float64) model.Account {
	return model.Account{
		ID:             id,
		UserID:         userID,
		Name:           "Savings " + id,
		Type:           model.AccountTypeDepository,
		Subtype:        subtype,
		CurrentBalance: balance,
	}
}

func savingsTxn(id, accountID string, amount float64, date time.Time) model.Transaction {
	return model.Transaction{
		ID:        id,
		UserID:    "user-1",
		AccountID: accountID,
		Amount:    amount,
		Name:      "TRANSFER",
		Date:      date,
	}
}

func TestSavingsDetector_NetInflowAndGrowth(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{savingsAccount("sav-1", "user-1", model.SubtypeSavings, 5500)}
	store.Transactions = []model.Transaction{
		savingsTxn("t1", "sav-1", 600, testNow.AddDate(0, 0, -20)),
		savingsTxn("t2", "sav-1", 400, testNow.AddDate(0, 0, -10)),
		savingsTxn("t3", "sav-1", -500, testNow.AddDate(0, 0, -5)),
	}

	detector := NewSavingsDetector(store)
	signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 30))
	require.NoError(t, err)

	assert.InDelta(t, 1000, signals.Deposits, 0.001)
	assert.InDelta(t, 500, signals.Withdrawals, 0.001)
	assert.InDelta(t, 500, signals.NetInflow, 0.001)
	assert.InDelta(t, 500, signals.NetMonthlyInflow, 0.001)

	// Previous balance estimated as 5500 - 500 = 5000, so growth = 10%.
	assert.InDelta(t, 10.0, signals.GrowthRate, 0.001)
}

func TestSavingsDetector_GrowthGuardsDivideByZero(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{savingsAccount("sav-1", "user-1", model.SubtypeSavings, 500)}
	// Net inflow equals the entire balance: previous balance estimate is 0.
	store.Transactions = []model.Transaction{
		savingsTxn("t1", "sav-1", 500, testNow.AddDate(0, 0, -10)),
	}

	detector := NewSavingsDetector(store)
	signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 30))
	require.NoError(t, err)

	assert.Zero(t, signals.GrowthRate)
}

func TestSavingsDetector_EmergencyFundUsesFixedReferenceWindow(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{
		savingsAccount("sav-1", "user-1", model.SubtypeSavings, 6000),
		checkingAccount("chk-1", "user-1", 1000),
	}
	// 90 days of checking expenses at 2000/month; the 30-day signal window
	// must not change the emergency-fund denominator.
	store.Transactions = []model.Transaction{
		{ID: "e1", UserID: "user-1", AccountID: "chk-1", Amount: -2000, Name: "RENT", Date: testNow.AddDate(0, 0, -80)},
		{ID: "e2", UserID: "user-1", AccountID: "chk-1", Amount: -2000, Name: "RENT", Date: testNow.AddDate(0, 0, -50)},
		{ID: "e3", UserID: "user-1", AccountID: "chk-1", Amount: -2000, Name: "RENT", Date: testNow.AddDate(0, 0, -20)},
	}

	detector := NewSavingsDetector(store)
	signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 30))
	require.NoError(t, err)

	assert.InDelta(t, 3.0, signals.EmergencyFundMonths, 0.001)
}

func TestSavingsDetector_AccountTypes(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{
		savingsAccount("sav-1", "user-1", model.SubtypeSavings, 1000),
		savingsAccount("mm-1", "user-1", model.SubtypeMoneyMarket, 2000),
		savingsAccount("hsa-1", "user-1", model.SubtypeHSA, 500),
		checkingAccount("chk-1", "user-1", 9999),
	}

	detector := NewSavingsDetector(store)
	signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 30))
	require.NoError(t, err)

	assert.Equal(t, 3, signals.AccountCount)
	assert.InDelta(t, 3500, signals.TotalBalance, 0.001, "checking balances are not savings")
}

func TestSavingsDetector_NoSavingsAccounts(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	store.Accounts = []model.Account{checkingAccount("chk-1", "user-1", 1000)}

	detector := NewSavingsDetector(store)
	signals, err := detector.CalculateSignals(context.Background(), "user-1", NewWindow(testNow, 30))

	require.NoError(t, err, "missing savings accounts must be a valid zero-result")
	assert.Zero(t, signals.AccountCount)
	assert.Zero(t, signals.TotalBalance)
	assert.Zero(t, signals.EmergencyFundMonths)
}
