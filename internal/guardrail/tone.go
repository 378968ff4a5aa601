package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/service"
)

// Tone gate defaults. Scores run 0 to 10; anything under the threshold is
// flagged for operator review.
const (
	DefaultToneThreshold = 7.0
	DefaultToneTimeout   = 10 * time.Second
)

// Tone is the advisory gate: a low score or a scoring failure never blocks
// recommendation creation, it is recorded in the decision trace instead.
type Tone struct {
	scorer    service.ToneScorer
	logger    *slog.Logger
	threshold float64
	timeout   time.Duration
}

// ToneOption configures the tone gate.
type ToneOption func(*Tone)

// WithToneThreshold overrides the passing score threshold.
func WithToneThreshold(threshold float64) ToneOption {
	return func(t *Tone) {
		t.threshold = threshold
	}
}

// WithToneTimeout overrides the scoring deadline.
func WithToneTimeout(timeout time.Duration) ToneOption {
	return func(t *Tone) {
		t.timeout = timeout
	}
}

// NewTone creates the tone gate. A nil scorer is valid: the gate then
// reports tone unknown for every candidate.
func NewTone(scorer service.ToneScorer, opts ...ToneOption) *Tone {
	t := &Tone{
		scorer:    scorer,
		logger:    slog.Default().With("component", "guardrail.tone"),
		threshold: DefaultToneThreshold,
		timeout:   DefaultToneTimeout,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Check scores the candidate's text. It never returns an error: a scorer
// failure or timeout degrades to "tone unknown", a pass with a recorded
// warning, so recommendation emission is never held up by the scorer.
func (t *Tone) Check(ctx context.Context, text string) model.GuardrailResult {
	result := model.GuardrailResult{
		Gate:        model.GateTone,
		Blocking:    false,
		EvaluatedAt: time.Now(),
	}

	if t.scorer == nil {
		result.Passed = true
		result.Explanation = "tone unknown: no scorer configured"
		return result
	}

	scoreCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	score, err := t.scorer.ScoreTone(scoreCtx, text)
	if err != nil {
		t.logger.Warn("Tone scoring failed, treating as unknown", "error", err)
		result.Passed = true
		result.Explanation = fmt.Sprintf("tone unknown: scoring failed: %v", err)
		return result
	}

	result.Score = &score
	if score < t.threshold {
		result.Explanation = fmt.Sprintf("tone score %.1f is below the %.1f threshold", score, t.threshold)
		t.logger.Warn("Tone check failed",
			"score", score,
			"threshold", t.threshold)
		return result
	}

	result.Passed = true
	result.Explanation = fmt.Sprintf("tone score %.1f meets the %.1f threshold", score, t.threshold)
	return result
}
