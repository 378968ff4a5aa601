package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: profiles, accounts, transactions, liabilities",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS profiles (
					user_id TEXT PRIMARY KEY,
					display_name TEXT,
					consent_granted BOOLEAN NOT NULL DEFAULT 0,
					consent_updated_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					official_name TEXT,
					type TEXT NOT NULL,
					subtype TEXT NOT NULL,
					holder_category TEXT NOT NULL DEFAULT 'individual',
					currency TEXT,
					current_balance REAL NOT NULL DEFAULT 0,
					available_balance REAL NOT NULL DEFAULT 0,
					credit_limit REAL NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_accounts_user ON accounts(user_id)`,
				`CREATE INDEX idx_accounts_subtype ON accounts(user_id, subtype)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					account_id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					date DATETIME NOT NULL,
					name TEXT NOT NULL,
					merchant_name TEXT,
					merchant_entity_id TEXT,
					amount REAL NOT NULL,
					category_primary TEXT,
					category_detailed TEXT,
					payment_channel TEXT,
					pending BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, date)`,
				`CREATE INDEX idx_transactions_account ON transactions(account_id)`,

				`CREATE TABLE IF NOT EXISTS liabilities (
					account_id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					apr REAL NOT NULL DEFAULT 0,
					interest_rate REAL NOT NULL DEFAULT 0,
					minimum_payment REAL NOT NULL DEFAULT 0,
					last_payment_amount REAL NOT NULL DEFAULT 0,
					last_payment_date DATETIME,
					next_payment_due_date DATETIME,
					is_overdue BOOLEAN NOT NULL DEFAULT 0
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Persona assignments with append-only history",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS persona_assignments (
					user_id TEXT PRIMARY KEY,
					persona_id INTEGER NOT NULL,
					persona_name TEXT NOT NULL,
					rationale TEXT NOT NULL,
					criteria TEXT,
					signals TEXT,
					assigned_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS persona_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					user_id TEXT NOT NULL,
					persona_id INTEGER NOT NULL,
					persona_name TEXT NOT NULL,
					rationale TEXT NOT NULL,
					criteria TEXT,
					signals TEXT,
					assigned_at DATETIME NOT NULL,
					replaced_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_persona_history_user ON persona_history(user_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Recommendations with embedded decision traces",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS recommendations (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					offer_id TEXT NOT NULL,
					persona_id INTEGER NOT NULL,
					title TEXT NOT NULL,
					content TEXT NOT NULL,
					rationale TEXT NOT NULL,
					trace TEXT,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_recommendations_user ON recommendations(user_id, created_at)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
