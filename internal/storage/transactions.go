package storage

import (
	"context"
	"fmt"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// SaveTransactions saves multiple transactions, skipping duplicates by
// content hash.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, account_id, user_id, date, name,
			merchant_name, merchant_entity_id, amount,
			category_primary, category_detailed, payment_channel, pending
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		if _, err := stmt.ExecContext(ctx,
			txn.ID,
			txn.Hash,
			txn.AccountID,
			txn.UserID,
			txn.Date,
			txn.Name,
			txn.MerchantName,
			txn.MerchantEntityID,
			txn.Amount,
			txn.CategoryPrimary,
			txn.CategoryDetailed,
			txn.PaymentChannel,
			txn.Pending,
		); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactions returns the user's transactions matching the filter,
// ordered oldest first. Pending transactions are excluded unless the
// filter asks for them.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, hash, account_id, user_id, date, name,
		       merchant_name, merchant_entity_id, amount,
		       category_primary, category_detailed, payment_channel, pending
		FROM transactions
		WHERE user_id = ?`
	args := []any{userID}

	if !filter.IncludePending {
		query += " AND pending = 0"
	}
	if len(filter.AccountIDs) > 0 {
		query += " AND account_id IN (" + placeholders(len(filter.AccountIDs)) + ")"
		for _, id := range filter.AccountIDs {
			args = append(args, id)
		}
	}
	if filter.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += " AND date <= ?"
		args = append(args, *filter.EndDate)
	}

	query += " ORDER BY date ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		if err := rows.Scan(
			&txn.ID,
			&txn.Hash,
			&txn.AccountID,
			&txn.UserID,
			&txn.Date,
			&txn.Name,
			&txn.MerchantName,
			&txn.MerchantEntityID,
			&txn.Amount,
			&txn.CategoryPrimary,
			&txn.CategoryDetailed,
			&txn.PaymentChannel,
			&txn.Pending,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}
