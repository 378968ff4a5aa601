package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// SaveAccounts upserts accounts in a single transaction. Re-importing an
// account refreshes its balances and metadata.
func (s *SQLiteStorage) SaveAccounts(ctx context.Context, accounts []model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccounts(accounts); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accounts (
			id, user_id, name, official_name, type, subtype,
			holder_category, currency, current_balance, available_balance, credit_limit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			official_name = excluded.official_name,
			type = excluded.type,
			subtype = excluded.subtype,
			holder_category = excluded.holder_category,
			currency = excluded.currency,
			current_balance = excluded.current_balance,
			available_balance = excluded.available_balance,
			credit_limit = excluded.credit_limit
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, account := range accounts {
		holder := account.HolderCategory
		if holder == "" {
			holder = model.HolderIndividual
		}

		if _, err := stmt.ExecContext(ctx,
			account.ID,
			account.UserID,
			account.Name,
			account.OfficialName,
			string(account.Type),
			string(account.Subtype),
			string(holder),
			account.Currency,
			account.CurrentBalance,
			account.AvailableBalance,
			account.CreditLimit,
		); err != nil {
			return fmt.Errorf("failed to save account %s: %w", account.ID, err)
		}
	}

	return tx.Commit()
}

// GetAccounts returns the user's accounts matching the filter.
func (s *SQLiteStorage) GetAccounts(ctx context.Context, userID string, filter service.AccountFilter) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, name, official_name, type, subtype,
		       holder_category, currency, current_balance, available_balance, credit_limit, created_at
		FROM accounts
		WHERE user_id = ?`
	args := []any{userID}

	if len(filter.Types) > 0 {
		query += " AND type IN (" + placeholders(len(filter.Types)) + ")"
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if len(filter.Subtypes) > 0 {
		query += " AND subtype IN (" + placeholders(len(filter.Subtypes)) + ")"
		for _, st := range filter.Subtypes {
			args = append(args, string(st))
		}
	}
	if filter.HolderCategory != "" {
		query += " AND holder_category = ?"
		args = append(args, string(filter.HolderCategory))
	}

	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// GetAccountByID returns a single account.
func (s *SQLiteStorage) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, official_name, type, subtype,
		       holder_category, currency, current_balance, available_balance, credit_limit, created_at
		FROM accounts
		WHERE id = ?`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	return &account, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (model.Account, error) {
	var account model.Account
	var officialName, currency sql.NullString

	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Name,
		&officialName,
		&account.Type,
		&account.Subtype,
		&account.HolderCategory,
		&currency,
		&account.CurrentBalance,
		&account.AvailableBalance,
		&account.CreditLimit,
		&account.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, err
		}
		return model.Account{}, fmt.Errorf("failed to scan account: %w", err)
	}

	account.OfficialName = officialName.String
	account.Currency = currency.String
	return account, nil
}

// placeholders returns n comma-joined SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
