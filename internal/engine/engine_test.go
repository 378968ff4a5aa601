package engine

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/cache"
	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/guardrail"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/persona"
	"github.com/ledgerlens/ledgerlens/internal/signal"
	"github.com/ledgerlens/ledgerlens/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedScorer struct {
	score float64
	err   error
}

func (s *fixedScorer) ScoreTone(_ context.Context, _ string) (float64, error) {
	return s.score, s.err
}

type fixedGenerator struct {
	content string
	err     error
}

func (g *fixedGenerator) GenerateContent(_ context.Context, _ string) (string, error) {
	return g.content, g.err
}

func newTestEngine(t *testing.T, store *testutil.MockStorage, opts ...Option) *RecommendationEngine {
	t.Helper()

	c := cache.New()
	t.Cleanup(c.Close)

	generator := signal.NewGenerator(store, c, signal.WithClock(func() time.Time { return testNow }))
	classifier := persona.NewClassifier(store, generator, persona.WithClock(func() time.Time { return testNow }))

	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(store, classifier, guardrail.NewEligibility(store), guardrail.NewTone(&fixedScorer{score: 8}), opts...)
}

func severeCardStore(userID string) *testutil.MockStorage {
	store := testutil.NewMockStorage().WithConsent(userID, true)
	store.Accounts = []model.Account{{
		ID:             "card-1",
		UserID:         userID,
		Name:           "Rewards Card",
		Type:           model.AccountTypeCredit,
		Subtype:        model.SubtypeCreditCard,
		HolderCategory: model.HolderIndividual,
		CurrentBalance: 4000,
		CreditLimit:    5000,
	}}
	return store
}

func TestGenerateRecommendations_HighUtilizationUser(t *testing.T) {
	store := severeCardStore("user-1")
	eng := newTestEngine(t, store)

	recs, err := eng.GenerateRecommendations(context.Background(), "user-1")
	require.NoError(t, err)

	// The balance transfer card requires a 670 score; a severe-utilization
	// card estimates to 570, so that candidate is omitted. The paydown
	// plan and the generic checkup remain.
	offerIDs := make([]string, 0, len(recs))
	for _, rec := range recs {
		offerIDs = append(offerIDs, rec.OfferID)
	}
	assert.ElementsMatch(t, []string{"balance-paydown-plan", "spending-checkup"}, offerIDs)

	for _, rec := range recs {
		assert.Equal(t, model.PersonaHighUtilization, rec.Persona)
		require.NotNil(t, rec.Trace)
		require.Len(t, rec.Trace.Guardrails, 3)
		assert.Equal(t, model.GateConsent, rec.Trace.Guardrails[0].Gate)
		assert.Equal(t, model.GateEligibility, rec.Trace.Guardrails[1].Gate)
		assert.Equal(t, model.GateTone, rec.Trace.Guardrails[2].Gate)
		assert.True(t, rec.Trace.Guardrails[0].Passed)
		assert.True(t, rec.Trace.Guardrails[2].Passed)
		assert.Contains(t, rec.Trace.Rationale, "80.0%")
	}
}

func TestGenerateRecommendations_RejectedCandidateNotPersisted(t *testing.T) {
	store := severeCardStore("user-1")
	eng := newTestEngine(t, store)

	_, err := eng.GenerateRecommendations(context.Background(), "user-1")
	require.NoError(t, err)

	saved, err := store.GetRecommendations(context.Background(), "user-1", 0)
	require.NoError(t, err)
	for _, rec := range saved {
		assert.NotEqual(t, "balance-transfer-card", rec.OfferID)
	}
}

func TestGenerateRecommendations_ConsentDeniedIsFatal(t *testing.T) {
	store := testutil.NewMockStorage().WithConsent("user-1", false)
	eng := newTestEngine(t, store)

	recs, err := eng.GenerateRecommendations(context.Background(), "user-1")

	require.Error(t, err)
	assert.True(t, common.IsConsentError(err))
	assert.Empty(t, recs)
}

func TestGenerateRecommendations_MissingIncomeBlocksQuantitativeOffer(t *testing.T) {
	// A consenting user with no accounts classifies as balanced. The
	// rewards card requires income evidence, which does not exist, so
	// only the generic checkup survives.
	store := testutil.NewMockStorage().WithConsent("user-1", true)
	eng := newTestEngine(t, store)

	recs, err := eng.GenerateRecommendations(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, "spending-checkup", recs[0].OfferID)
}

func TestGenerateRecommendations_GeneratedContent(t *testing.T) {
	store := severeCardStore("user-1")
	eng := newTestEngine(t, store,
		WithContentGenerator(&fixedGenerator{content: "Custom guidance text."}),
		WithOffers([]model.Offer{{
			ID:        "offer-custom",
			Title:     "Custom Offer",
			Body:      "Template body.",
			Rationale: "Template rationale.",
		}}))

	recs, err := eng.GenerateRecommendations(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, "Custom guidance text.", recs[0].Content)
}

func TestGenerateRecommendations_GenerationFailureFallsBackToTemplate(t *testing.T) {
	store := severeCardStore("user-1")
	eng := newTestEngine(t, store,
		WithContentGenerator(&fixedGenerator{err: assert.AnError}),
		WithOffers([]model.Offer{{
			ID:        "offer-custom",
			Title:     "Custom Offer",
			Body:      "Template body.",
			Rationale: "Template rationale.",
		}}))

	recs, err := eng.GenerateRecommendations(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, recs, 1)
	assert.Equal(t, "Template body.", recs[0].Content)
}

func TestGenerateRecommendations_ToneFailureIsRecordedNotBlocking(t *testing.T) {
	store := severeCardStore("user-1")

	c := cache.New()
	t.Cleanup(c.Close)
	generator := signal.NewGenerator(store, c, signal.WithClock(func() time.Time { return testNow }))
	classifier := persona.NewClassifier(store, generator, persona.WithClock(func() time.Time { return testNow }))

	eng := New(store, classifier,
		guardrail.NewEligibility(store),
		guardrail.NewTone(&fixedScorer{score: 2}),
		WithClock(func() time.Time { return testNow }),
		WithOffers([]model.Offer{{ID: "offer-1", Title: "Offer", Body: "Body.", Rationale: "Why."}}))

	recs, err := eng.GenerateRecommendations(context.Background(), "user-1")
	require.NoError(t, err)

	require.Len(t, recs, 1, "a failed tone check never blocks emission")
	toneResult := recs[0].Trace.Guardrails[2]
	assert.False(t, toneResult.Passed)
	assert.False(t, toneResult.Blocking)
}

func TestOffersForPersona(t *testing.T) {
	for _, p := range []model.PersonaID{
		model.PersonaHighUtilization,
		model.PersonaVariableIncome,
		model.PersonaSubscriptionHeavy,
		model.PersonaSavingsBuilder,
		model.PersonaBalanced,
	} {
		offers := OffersForPersona(p)
		assert.NotEmpty(t, offers, "every persona has at least one applicable offer")
	}
}
