// Package model defines the core domain types shared across the application.
package model

import "time"

// AccountType is the broad account classification from the data provider.
type AccountType string

const (
	// AccountTypeDepository covers checking, savings, money market, and HSA accounts.
	AccountTypeDepository AccountType = "depository"
	// AccountTypeCredit covers revolving credit accounts.
	AccountTypeCredit AccountType = "credit"
	// AccountTypeLoan covers installment loans (mortgage, auto, student).
	AccountTypeLoan AccountType = "loan"
)

// AccountSubtype narrows an account type to the granularity the signal
// detectors care about. The subtype determines which detector may consume
// the account.
type AccountSubtype string

const (
	SubtypeChecking    AccountSubtype = "checking"
	SubtypeSavings     AccountSubtype = "savings"
	SubtypeMoneyMarket AccountSubtype = "money market"
	SubtypeHSA         AccountSubtype = "hsa"
	SubtypeCreditCard  AccountSubtype = "credit card"
	SubtypeMortgage    AccountSubtype = "mortgage"
	SubtypeAuto        AccountSubtype = "auto"
	SubtypeStudent     AccountSubtype = "student"
)

// HolderCategory distinguishes individually held accounts from joint ones.
type HolderCategory string

const (
	HolderIndividual HolderCategory = "individual"
	HolderJoint      HolderCategory = "joint"
)

// Account represents a single financial account owned by a user.
type Account struct {
	CreatedAt        time.Time
	ID               string
	UserID           string
	Name             string
	OfficialName     string
	Type             AccountType
	Subtype          AccountSubtype
	HolderCategory   HolderCategory
	Currency         string
	CurrentBalance   float64
	AvailableBalance float64
	CreditLimit      float64
}

// IsCreditCard reports whether the account is a revolving credit card.
func (a *Account) IsCreditCard() bool {
	return a.Subtype == SubtypeCreditCard
}

// IsChecking reports whether the account is a checking account.
func (a *Account) IsChecking() bool {
	return a.Subtype == SubtypeChecking
}

// IsSavingsLike reports whether the account counts toward savings signals:
// savings, money market, or HSA.
func (a *Account) IsSavingsLike() bool {
	switch a.Subtype {
	case SubtypeSavings, SubtypeMoneyMarket, SubtypeHSA:
		return true
	default:
		return false
	}
}

// Profile is the per-user record the core consults for consent and identity.
type Profile struct {
	CreatedAt        time.Time
	ConsentUpdatedAt time.Time
	UserID           string
	DisplayName      string
	ConsentGranted   bool
}
