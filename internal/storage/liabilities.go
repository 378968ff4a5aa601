package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// SaveLiability upserts the liability record for an account.
func (s *SQLiteStorage) SaveLiability(ctx context.Context, liability *model.Liability) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if liability == nil {
		return fmt.Errorf("%w: liability", ErrNilParameter)
	}
	if err := validateString(liability.AccountID, "liability.AccountID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO liabilities (
			account_id, user_id, apr, interest_rate, minimum_payment,
			last_payment_amount, last_payment_date, next_payment_due_date, is_overdue
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			user_id = excluded.user_id,
			apr = excluded.apr,
			interest_rate = excluded.interest_rate,
			minimum_payment = excluded.minimum_payment,
			last_payment_amount = excluded.last_payment_amount,
			last_payment_date = excluded.last_payment_date,
			next_payment_due_date = excluded.next_payment_due_date,
			is_overdue = excluded.is_overdue
	`,
		liability.AccountID,
		liability.UserID,
		liability.APR,
		liability.InterestRate,
		liability.MinimumPayment,
		liability.LastPaymentAmount,
		nullableTime(liability.LastPaymentDate),
		nullableTime(liability.NextPaymentDueDate),
		liability.IsOverdue,
	)
	if err != nil {
		return fmt.Errorf("failed to save liability for account %s: %w", liability.AccountID, err)
	}

	return nil
}

// GetLiability returns the liability record for an account, or
// common.ErrNotFound when the account has none.
func (s *SQLiteStorage) GetLiability(ctx context.Context, accountID string) (*model.Liability, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}

	var liability model.Liability
	var lastPayment, nextDue sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, user_id, apr, interest_rate, minimum_payment,
		       last_payment_amount, last_payment_date, next_payment_due_date, is_overdue
		FROM liabilities
		WHERE account_id = ?`, accountID).Scan(
		&liability.AccountID,
		&liability.UserID,
		&liability.APR,
		&liability.InterestRate,
		&liability.MinimumPayment,
		&liability.LastPaymentAmount,
		&lastPayment,
		&nextDue,
		&liability.IsOverdue,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query liability: %w", err)
	}

	liability.LastPaymentDate = lastPayment.Time
	liability.NextPaymentDueDate = nextDue.Time
	return &liability, nil
}

// nullableTime maps a zero time to NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
