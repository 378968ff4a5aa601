package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single financial transaction from any source.
// Amounts are signed: expenses are negative, deposits and income positive.
type Transaction struct {
	Date             time.Time
	ID               string
	AccountID        string
	UserID           string
	Name             string // Raw transaction description
	MerchantName     string // Cleaned merchant name
	MerchantEntityID string // Stable merchant identity when the source provides one
	CategoryPrimary  string
	CategoryDetailed string
	PaymentChannel   string // e.g. ach, in store, online
	Hash             string
	Amount           float64
	Pending          bool
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.MerchantName,
		t.AccountID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// IsExpense reports whether the transaction is an outflow.
func (t *Transaction) IsExpense() bool {
	return t.Amount < 0
}

// IsDeposit reports whether the transaction is an inflow.
func (t *Transaction) IsDeposit() bool {
	return t.Amount > 0
}

// MerchantKey returns the most stable identity available for grouping
// transactions by merchant, preferring the entity ID over the name.
func (t *Transaction) MerchantKey() string {
	if t.MerchantEntityID != "" {
		return t.MerchantEntityID
	}
	return t.MerchantName
}

// Liability holds supplemental terms for a credit or loan account. A
// credit/loan account may have zero or one liability record.
type Liability struct {
	LastPaymentDate    time.Time
	NextPaymentDueDate time.Time
	AccountID          string
	UserID             string
	APR                float64
	InterestRate       float64
	MinimumPayment     float64
	LastPaymentAmount  float64
	IsOverdue          bool
}

// Overdue reports whether the liability is overdue as of the given time:
// either the provider flagged it, or its next payment due date has passed.
func (l *Liability) Overdue(now time.Time) bool {
	if l.IsOverdue {
		return true
	}
	return !l.NextPaymentDueDate.IsZero() && l.NextPaymentDueDate.Before(now)
}
