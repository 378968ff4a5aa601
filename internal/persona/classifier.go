// Package persona implements the behavioral persona classifier: a strict
// priority chain over the four signal categories that assigns exactly one
// of five personas per user.
package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/ledgerlens/ledgerlens/internal/signal"
)

// Result is a pure classification outcome before persistence.
type Result struct {
	Persona   model.PersonaID
	Rationale string
	Criteria  []string
}

// Classify runs the priority chain over one signal snapshot pair and
// returns exactly one persona. It is pure: no I/O, no clock.
func Classify(windows model.SignalWindows) Result {
	for _, r := range rules {
		if m := r.evaluate(windows); m != nil {
			return Result{
				Persona:   r.persona,
				Rationale: m.rationale,
				Criteria:  m.criteria,
			}
		}
	}

	// The fallback rule always matches; this is unreachable.
	return Result{Persona: model.PersonaBalanced}
}

// Classifier assigns personas and maintains the active assignment plus its
// append-only history.
type Classifier struct {
	store     service.Storage
	generator *signal.Generator
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock overrides the Classifier's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

// NewClassifier creates a Classifier over the given store and signal
// generator.
func NewClassifier(store service.Storage, generator *signal.Generator, opts ...Option) *Classifier {
	c := &Classifier{
		store:     store,
		generator: generator,
		logger:    slog.Default().With("component", "persona"),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AssignPersona classifies the user and persists the result. When
// precomputed is nil the signal generator produces both windows under its
// own consent check; a caller passing precomputed signals still gets the
// consent check, since classification is data processing too.
//
// If the persona changed, the previous assignment is appended to history
// and replaced atomically. If it is unchanged, only the signal snapshot on
// the active assignment is refreshed and no history record is written.
func (c *Classifier) AssignPersona(ctx context.Context, userID string, precomputed *model.SignalWindows) (*model.PersonaAssignment, error) {
	var windows model.SignalWindows
	if precomputed != nil {
		if err := c.generator.RequireConsent(ctx, userID, "assign_persona"); err != nil {
			return nil, err
		}
		windows = *precomputed
	} else {
		generated, err := c.generator.GenerateAll(ctx, userID)
		if err != nil {
			return nil, err
		}
		windows = generated
	}

	result := Classify(windows)

	existing, err := c.store.GetPersonaAssignment(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load persona assignment: %w", err)
	}

	now := c.now()

	if existing != nil && existing.Persona == result.Persona {
		// Same persona: refresh the snapshot only, no history write.
		if err := c.store.UpdateAssignmentSignals(ctx, userID, windows); err != nil {
			return nil, fmt.Errorf("failed to refresh assignment signals: %w", err)
		}
		existing.Signals = windows
		existing.UpdatedAt = now

		c.logger.Debug("Persona unchanged",
			"user_id", userID,
			"persona_id", int(existing.Persona))

		return existing, nil
	}

	next := &model.PersonaAssignment{
		UserID:      userID,
		Persona:     result.Persona,
		PersonaName: result.Persona.Name(),
		Rationale:   result.Rationale,
		Criteria:    result.Criteria,
		Signals:     windows,
		AssignedAt:  now,
		UpdatedAt:   now,
	}

	if existing == nil {
		if err := c.store.SavePersonaAssignment(ctx, next); err != nil {
			return nil, fmt.Errorf("failed to save persona assignment: %w", err)
		}
	} else {
		// Persona changed: history append and replacement commit together.
		if err := c.store.ReplacePersonaAssignment(ctx, existing, next); err != nil {
			return nil, fmt.Errorf("failed to replace persona assignment: %w", err)
		}

		c.logger.Info("Persona changed",
			"user_id", userID,
			"from", int(existing.Persona),
			"to", int(next.Persona))
	}

	return next, nil
}
