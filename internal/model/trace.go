package model

import "time"

// Guardrail gate names as they appear in results and traces.
const (
	GateConsent     = "consent"
	GateEligibility = "eligibility"
	GateTone        = "tone"
)

// GuardrailResult is one gate's verdict for one recommendation candidate.
// Gates are never retried automatically; a result is final.
type GuardrailResult struct {
	EvaluatedAt time.Time `json:"evaluated_at"`
	Gate        string    `json:"gate"`
	Explanation string    `json:"explanation"`
	Score       *float64  `json:"score,omitempty"`
	Passed      bool      `json:"passed"`
	Blocking    bool      `json:"blocking"`
}

// DecisionTrace is the write-once audit document attached to a
// recommendation. It denormalizes everything that fed the decision so the
// classification and gating can be reconstructed without further queries.
// Superseding a trace means generating a new recommendation, never editing.
type DecisionTrace struct {
	CreatedAt        time.Time         `json:"created_at"`
	RecommendationID string            `json:"recommendation_id"`
	UserID           string            `json:"user_id"`
	PersonaName      string            `json:"persona_name"`
	Rationale        string            `json:"rationale"`
	Title            string            `json:"title"`
	ContentPreview   string            `json:"content_preview"`
	RationalePreview string            `json:"rationale_preview"`
	Criteria         []string          `json:"criteria"`
	Guardrails       []GuardrailResult `json:"guardrails"`
	Signals          SignalWindows     `json:"signals"`
	GenerationMs     int64             `json:"generation_ms"`
	Persona          PersonaID         `json:"persona_id"`
}
