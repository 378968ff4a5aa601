// Package engine orchestrates recommendation generation: persona
// classification, candidate generation from the offer catalog, guardrail
// evaluation, decision trace assembly, and persistence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/guardrail"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/persona"
	"github.com/ledgerlens/ledgerlens/internal/service"
	"github.com/ledgerlens/ledgerlens/internal/trace"
)

// RecommendationEngine produces guardrailed, traced recommendations.
type RecommendationEngine struct {
	store       service.Storage
	classifier  *persona.Classifier
	eligibility *guardrail.Eligibility
	tone        *guardrail.Tone
	generator   service.ContentGenerator
	logger      *slog.Logger
	offers      []model.Offer
	now         func() time.Time
	newID       func() string
}

// Option configures a RecommendationEngine.
type Option func(*RecommendationEngine)

// WithOffers replaces the built-in offer catalog.
func WithOffers(offers []model.Offer) Option {
	return func(e *RecommendationEngine) {
		e.offers = offers
	}
}

// WithContentGenerator sets an LLM-backed content generator. Without one
// the engine uses each offer's body template.
func WithContentGenerator(generator service.ContentGenerator) Option {
	return func(e *RecommendationEngine) {
		e.generator = generator
	}
}

// WithClock overrides the engine's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *RecommendationEngine) {
		e.now = now
	}
}

// New creates a recommendation engine over the given store, classifier,
// and guardrail gates.
func New(store service.Storage, classifier *persona.Classifier, eligibility *guardrail.Eligibility, tone *guardrail.Tone, opts ...Option) *RecommendationEngine {
	e := &RecommendationEngine{
		store:       store,
		classifier:  classifier,
		eligibility: eligibility,
		tone:        tone,
		logger:      slog.Default().With("component", "engine"),
		offers:      defaultOffers,
		now:         time.Now,
		newID:       uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// GenerateRecommendations runs the full pipeline for one user. Consent is
// checked once up front and is fatal on refusal; blocked candidates are
// omitted from the result with their rejection reason logged, never
// silently substituted. Every emitted recommendation carries a freshly
// built decision trace.
func (e *RecommendationEngine) GenerateRecommendations(ctx context.Context, userID string) ([]model.Recommendation, error) {
	consentResult, err := guardrail.CheckConsent(ctx, e.store, userID, "generate_recommendations")
	if err != nil {
		return nil, err
	}

	assignment, err := e.classifier.AssignPersona(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to classify user %s: %w", userID, err)
	}

	offers := e.applicableOffers(assignment.Persona)
	e.logger.Info("Generating recommendations",
		"user_id", userID,
		"persona", assignment.PersonaName,
		"candidate_offers", len(offers))

	var recommendations []model.Recommendation
	for _, offer := range offers {
		rec, err := e.evaluateCandidate(ctx, userID, offer, assignment, consentResult)
		if err != nil {
			var ee *common.EligibilityError
			if errors.As(err, &ee) {
				// Final answer for this candidate; the rest continue.
				continue
			}
			return nil, err
		}
		recommendations = append(recommendations, *rec)
	}

	return recommendations, nil
}

func (e *RecommendationEngine) evaluateCandidate(ctx context.Context, userID string, offer model.Offer, assignment *model.PersonaAssignment, consentResult model.GuardrailResult) (*model.Recommendation, error) {
	start := e.now()

	candidate := e.buildCandidate(ctx, offer, assignment)

	eligibilityResult, err := e.eligibility.Check(ctx, candidate, userID, assignment.Signals)
	if err != nil {
		return nil, err
	}

	toneResult := e.tone.Check(ctx, candidate.Content+"\n\n"+candidate.Rationale)

	recID := e.newID()
	created := e.now()

	doc := trace.Build(trace.Input{
		RecommendationID: recID,
		UserID:           userID,
		Assignment:       assignment,
		Signals:          assignment.Signals,
		Guardrails:       []model.GuardrailResult{consentResult, eligibilityResult, toneResult},
		Title:            offer.Title,
		Content:          candidate.Content,
		Rationale:        candidate.Rationale,
		GenerationMs:     created.Sub(start).Milliseconds(),
		CreatedAt:        created,
	})

	rec := &model.Recommendation{
		ID:        recID,
		UserID:    userID,
		OfferID:   offer.ID,
		Persona:   assignment.Persona,
		Title:     offer.Title,
		Content:   candidate.Content,
		Rationale: candidate.Rationale,
		CreatedAt: created,
		Trace:     &doc,
	}

	if err := e.store.SaveRecommendation(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save recommendation: %w", err)
	}

	return rec, nil
}

// buildCandidate produces the candidate text, preferring generated content
// and falling back to the offer's body template on any generation failure.
func (e *RecommendationEngine) buildCandidate(ctx context.Context, offer model.Offer, assignment *model.PersonaAssignment) model.Candidate {
	candidate := model.Candidate{
		Offer:     offer,
		Content:   offer.Body,
		Rationale: offer.Rationale,
	}

	if e.generator == nil {
		return candidate
	}

	prompt := fmt.Sprintf(
		"Write 2-3 sentences of supportive guidance for a user classified as %q.\n"+
			"Classification rationale: %s\n"+
			"The guidance should deliver this message: %s",
		assignment.PersonaName, assignment.Rationale, offer.Body)

	content, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		e.logger.Warn("Content generation failed, using offer template",
			"offer_id", offer.ID,
			"error", err)
		return candidate
	}

	candidate.Content = content
	return candidate
}

func (e *RecommendationEngine) applicableOffers(p model.PersonaID) []model.Offer {
	var offers []model.Offer
	for _, offer := range e.offers {
		if offer.AppliesTo(p) {
			offers = append(offers, offer)
		}
	}
	return offers
}
