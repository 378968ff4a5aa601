package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
)

// SaveRecommendation persists a recommendation with its decision trace.
// The trace is stored as a JSON document and never updated afterward.
func (s *SQLiteStorage) SaveRecommendation(ctx context.Context, rec *model.Recommendation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: recommendation", ErrNilParameter)
	}
	if err := validateString(rec.ID, "recommendation.ID"); err != nil {
		return err
	}
	if err := validateString(rec.UserID, "recommendation.UserID"); err != nil {
		return err
	}

	var traceJSON any
	if rec.Trace != nil {
		data, err := json.Marshal(rec.Trace)
		if err != nil {
			return fmt.Errorf("failed to marshal decision trace: %w", err)
		}
		traceJSON = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendations (
			id, user_id, offer_id, persona_id, title, content, rationale, trace, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.UserID,
		rec.OfferID,
		int(rec.Persona),
		rec.Title,
		rec.Content,
		rec.Rationale,
		traceJSON,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recommendation %s: %w", rec.ID, err)
	}

	return nil
}

// GetRecommendations returns the user's recommendations, newest first. A
// limit of 0 returns all of them.
func (s *SQLiteStorage) GetRecommendations(ctx context.Context, userID string, limit int) ([]model.Recommendation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, user_id, offer_id, persona_id, title, content, rationale, trace, created_at
		FROM recommendations
		WHERE user_id = ?
		ORDER BY created_at DESC`
	args := []any{userID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []model.Recommendation
	for rows.Next() {
		rec, scanErr := scanRecommendation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		recs = append(recs, *rec)
	}

	return recs, rows.Err()
}

// GetRecommendationByID returns one recommendation with its trace.
func (s *SQLiteStorage) GetRecommendationByID(ctx context.Context, id string) (*model.Recommendation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, offer_id, persona_id, title, content, rationale, trace, created_at
		FROM recommendations
		WHERE id = ?`, id)

	rec, err := scanRecommendation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}

	return rec, nil
}

func scanRecommendation(row rowScanner) (*model.Recommendation, error) {
	var rec model.Recommendation
	var personaID int
	var traceJSON sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.OfferID,
		&personaID,
		&rec.Title,
		&rec.Content,
		&rec.Rationale,
		&traceJSON,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recommendation: %w", err)
	}

	rec.Persona = model.PersonaID(personaID)
	if traceJSON.Valid && traceJSON.String != "" {
		var trace model.DecisionTrace
		if err := json.Unmarshal([]byte(traceJSON.String), &trace); err != nil {
			return nil, fmt.Errorf("failed to unmarshal decision trace: %w", err)
		}
		rec.Trace = &trace
	}

	return &rec, nil
}
