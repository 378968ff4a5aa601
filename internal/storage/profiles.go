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

// SaveProfile upserts a user profile.
func (s *SQLiteStorage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("%w: profile", ErrNilParameter)
	}
	if err := validateString(profile.UserID, "profile.UserID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, consent_granted, consent_updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			consent_granted = excluded.consent_granted,
			consent_updated_at = excluded.consent_updated_at
	`,
		profile.UserID,
		profile.DisplayName,
		profile.ConsentGranted,
		nullableTime(profile.ConsentUpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile for user %s: %w", profile.UserID, err)
	}

	return nil
}

// GetProfile returns the user's profile, or common.ErrUserNotFound.
func (s *SQLiteStorage) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var profile model.Profile
	var displayName sql.NullString
	var consentUpdated sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, display_name, consent_granted, consent_updated_at, created_at
		FROM profiles
		WHERE user_id = ?`, userID).Scan(
		&profile.UserID,
		&displayName,
		&profile.ConsentGranted,
		&consentUpdated,
		&profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	profile.DisplayName = displayName.String
	profile.ConsentUpdatedAt = consentUpdated.Time
	return &profile, nil
}

// GetConsent returns the user's consent flag. An unknown user is an
// error, never a silent false.
func (s *SQLiteStorage) GetConsent(ctx context.Context, userID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return false, err
	}

	var granted bool
	err := s.db.QueryRowContext(ctx,
		"SELECT consent_granted FROM profiles WHERE user_id = ?", userID).Scan(&granted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to query consent: %w", err)
	}

	return granted, nil
}

// SetConsent updates the user's consent flag.
func (s *SQLiteStorage) SetConsent(ctx context.Context, userID string, granted bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE profiles
		SET consent_granted = ?, consent_updated_at = ?
		WHERE user_id = ?`, granted, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update consent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check consent update: %w", err)
	}
	if affected == 0 {
		return common.ErrUserNotFound
	}

	return nil
}
