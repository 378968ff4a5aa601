// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrUserNotFound = errors.New("user not found")
)

// ConsentError indicates that an operation could not proceed because the
// user has not granted consent, or the user does not exist. It is fatal for
// the whole operation: no data processing runs once it is raised.
type ConsentError struct {
	UserID    string
	Operation string
	Reason    string
}

func (e *ConsentError) Error() string {
	return fmt.Sprintf("consent check failed for user %s (%s): %s", e.UserID, e.Operation, e.Reason)
}

// NewConsentError creates a ConsentError for the given user and operation.
func NewConsentError(userID, operation, reason string) error {
	return &ConsentError{UserID: userID, Operation: operation, Reason: reason}
}

// IsConsentError reports whether err is (or wraps) a ConsentError.
func IsConsentError(err error) bool {
	var ce *ConsentError
	return errors.As(err, &ce)
}

// EligibilityError indicates one recommendation candidate failed an
// eligibility check. It is scoped to that candidate; other candidates
// continue to be evaluated.
type EligibilityError struct {
	OfferID string
	Reason  string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("offer %s ineligible: %s", e.OfferID, e.Reason)
}

// NewEligibilityError creates an EligibilityError for the given offer.
func NewEligibilityError(offerID, reason string) error {
	return &EligibilityError{OfferID: offerID, Reason: reason}
}

