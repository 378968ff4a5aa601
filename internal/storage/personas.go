package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// GetPersonaAssignment returns the user's active persona assignment, or
// common.ErrNotFound when the user has never been classified.
func (s *SQLiteStorage) GetPersonaAssignment(ctx context.Context, userID string) (*model.PersonaAssignment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, persona_id, persona_name, rationale, criteria, signals, assigned_at, updated_at
		FROM persona_assignments
		WHERE user_id = ?`, userID)

	assignment, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	return assignment, nil
}

// SavePersonaAssignment installs the active assignment for a user who has
// never been classified before.
func (s *SQLiteStorage) SavePersonaAssignment(ctx context.Context, assignment *model.PersonaAssignment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAssignment(assignment); err != nil {
		return err
	}

	criteriaJSON, signalsJSON, err := marshalAssignment(assignment)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO persona_assignments (
			user_id, persona_id, persona_name, rationale, criteria, signals, assigned_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		assignment.UserID,
		int(assignment.Persona),
		assignment.PersonaName,
		assignment.Rationale,
		criteriaJSON,
		signalsJSON,
		assignment.AssignedAt,
		assignment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save persona assignment: %w", err)
	}

	return nil
}

// ReplacePersonaAssignment appends the previous assignment to the
// immutable history and installs the next one as active, in a single
// transaction. History rows are never edited or deleted.
func (s *SQLiteStorage) ReplacePersonaAssignment(ctx context.Context, previous, next *model.PersonaAssignment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAssignment(next); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if previous != nil {
		prevCriteria, prevSignals, marshalErr := marshalAssignment(previous)
		if marshalErr != nil {
			return marshalErr
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO persona_history (
				user_id, persona_id, persona_name, rationale, criteria, signals, assigned_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			previous.UserID,
			int(previous.Persona),
			previous.PersonaName,
			previous.Rationale,
			prevCriteria,
			prevSignals,
			previous.AssignedAt,
		); err != nil {
			return fmt.Errorf("failed to append persona history: %w", err)
		}
	}

	criteriaJSON, signalsJSON, err := marshalAssignment(next)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO persona_assignments (
			user_id, persona_id, persona_name, rationale, criteria, signals, assigned_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			persona_id = excluded.persona_id,
			persona_name = excluded.persona_name,
			rationale = excluded.rationale,
			criteria = excluded.criteria,
			signals = excluded.signals,
			assigned_at = excluded.assigned_at,
			updated_at = excluded.updated_at
	`,
		next.UserID,
		int(next.Persona),
		next.PersonaName,
		next.Rationale,
		criteriaJSON,
		signalsJSON,
		next.AssignedAt,
		next.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to install persona assignment: %w", err)
	}

	return tx.Commit()
}

// UpdateAssignmentSignals refreshes the signal snapshot on the active
// assignment without touching the persona or its history.
func (s *SQLiteStorage) UpdateAssignmentSignals(ctx context.Context, userID string, signals model.SignalWindows) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE persona_assignments
		SET signals = ?, updated_at = ?
		WHERE user_id = ?`, string(signalsJSON), time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update assignment signals: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check signals update: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// GetPersonaHistory returns prior assignments, oldest first. A limit of 0
// returns all history.
func (s *SQLiteStorage) GetPersonaHistory(ctx context.Context, userID string, limit int) ([]model.PersonaAssignment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, persona_id, persona_name, rationale, criteria, signals, assigned_at, replaced_at
		FROM persona_history
		WHERE user_id = ?
		ORDER BY id ASC`
	args := []any{userID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query persona history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var history []model.PersonaAssignment
	for rows.Next() {
		var a model.PersonaAssignment
		var personaID int
		var criteriaJSON, signalsJSON sql.NullString

		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&personaID,
			&a.PersonaName,
			&a.Rationale,
			&criteriaJSON,
			&signalsJSON,
			&a.AssignedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan persona history: %w", err)
		}

		a.Persona = model.PersonaID(personaID)
		if err := unmarshalAssignment(&a, criteriaJSON, signalsJSON); err != nil {
			return nil, err
		}
		history = append(history, a)
	}

	return history, rows.Err()
}

func scanAssignment(row rowScanner) (*model.PersonaAssignment, error) {
	var a model.PersonaAssignment
	var personaID int
	var criteriaJSON, signalsJSON sql.NullString

	err := row.Scan(
		&a.UserID,
		&personaID,
		&a.PersonaName,
		&a.Rationale,
		&criteriaJSON,
		&signalsJSON,
		&a.AssignedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan persona assignment: %w", err)
	}

	a.Persona = model.PersonaID(personaID)
	if err := unmarshalAssignment(&a, criteriaJSON, signalsJSON); err != nil {
		return nil, err
	}

	return &a, nil
}

func marshalAssignment(a *model.PersonaAssignment) (criteriaJSON, signalsJSON string, err error) {
	criteria, err := json.Marshal(a.Criteria)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal criteria: %w", err)
	}

	signals, err := json.Marshal(a.Signals)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal signals: %w", err)
	}

	return string(criteria), string(signals), nil
}

func unmarshalAssignment(a *model.PersonaAssignment, criteriaJSON, signalsJSON sql.NullString) error {
	if criteriaJSON.Valid && criteriaJSON.String != "" {
		if err := json.Unmarshal([]byte(criteriaJSON.String), &a.Criteria); err != nil {
			return fmt.Errorf("failed to unmarshal criteria: %w", err)
		}
	}
	if signalsJSON.Valid && signalsJSON.String != "" {
		if err := json.Unmarshal([]byte(signalsJSON.String), &a.Signals); err != nil {
			return fmt.Errorf("failed to unmarshal signals: %w", err)
		}
	}
	return nil
}
