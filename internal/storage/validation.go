// Package storage provides the SQLite persistence layer for the
// application.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidAccount     = errors.New("invalid account")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidAssignment  = errors.New("invalid persona assignment")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateAccounts(accounts []model.Account) error {
	if accounts == nil {
		return fmt.Errorf("%w: accounts", ErrNilParameter)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("%w: accounts", ErrEmptySlice)
	}

	for i, account := range accounts {
		if err := validateAccount(&account); err != nil {
			return fmt.Errorf("account at index %d: %w", i, err)
		}
	}
	return nil
}

func validateAccount(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("%w: account", ErrNilParameter)
	}
	if account.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidAccount)
	}
	if account.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidAccount)
	}
	if account.Subtype == "" {
		return fmt.Errorf("%w: missing subtype", ErrInvalidAccount)
	}
	return nil
}

func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if txn.AccountID == "" {
		return fmt.Errorf("%w: missing account ID", ErrInvalidTransaction)
	}
	if txn.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidTransaction)
	}
	return nil
}

func validateAssignment(assignment *model.PersonaAssignment) error {
	if assignment == nil {
		return fmt.Errorf("%w: assignment", ErrNilParameter)
	}
	if assignment.UserID == "" {
		return fmt.Errorf("%w: missing user ID", ErrInvalidAssignment)
	}
	if !assignment.Persona.Valid() {
		return fmt.Errorf("%w: unknown persona id %d", ErrInvalidAssignment, assignment.Persona)
	}
	return nil
}
