// Package trace assembles the immutable decision trace attached to every
// emitted recommendation.
package trace

import (
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// previewLimit caps the content and rationale previews stored on a trace.
// The full text lives on the recommendation itself.
const previewLimit = 200

// Input carries everything that fed one recommendation decision.
type Input struct {
	RecommendationID string
	UserID           string
	Assignment       *model.PersonaAssignment
	Signals          model.SignalWindows
	Guardrails       []model.GuardrailResult
	Title            string
	Content          string
	Rationale        string
	GenerationMs     int64
	CreatedAt        time.Time
}

// Build produces one write-once trace document. It is pure assembly: no
// merging with prior traces, no partial updates. The criteria and signal
// snapshots are copied so later mutation of the inputs cannot reach the
// stored document.
func Build(in Input) model.DecisionTrace {
	doc := model.DecisionTrace{
		RecommendationID: in.RecommendationID,
		UserID:           in.UserID,
		Title:            in.Title,
		ContentPreview:   truncate(in.Content, previewLimit),
		RationalePreview: truncate(in.Rationale, previewLimit),
		Signals:          in.Signals,
		GenerationMs:     in.GenerationMs,
		CreatedAt:        in.CreatedAt,
	}

	if in.Assignment != nil {
		doc.Persona = in.Assignment.Persona
		doc.PersonaName = in.Assignment.PersonaName
		doc.Rationale = in.Assignment.Rationale
		doc.Criteria = append([]string(nil), in.Assignment.Criteria...)
	}

	doc.Guardrails = append([]model.GuardrailResult(nil), in.Guardrails...)

	return doc
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
