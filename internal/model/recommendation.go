package model

import "time"

// Offer is a content/offer template from the catalog. Zero-valued
// MinCreditScore and MinIncome mean the offer carries no quantitative
// requirement.
type Offer struct {
	ID             string
	Title          string
	Body           string
	Rationale      string
	Personas       []PersonaID
	BlockedIf      []AccountSubtype
	MinCreditScore int
	MinIncome      float64
}

// AppliesTo reports whether the offer targets the given persona. An offer
// with no persona list applies to everyone.
func (o *Offer) AppliesTo(p PersonaID) bool {
	if len(o.Personas) == 0 {
		return true
	}
	for _, persona := range o.Personas {
		if persona == p {
			return true
		}
	}
	return false
}

// Candidate is one recommendation candidate awaiting guardrail evaluation:
// an offer plus the generated text for this user.
type Candidate struct {
	Offer     Offer
	Content   string
	Rationale string
}

// Recommendation is an emitted, persisted recommendation with its trace.
type Recommendation struct {
	CreatedAt time.Time      `json:"created_at"`
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	OfferID   string         `json:"offer_id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Rationale string         `json:"rationale"`
	Persona   PersonaID      `json:"persona_id"`
	Trace     *DecisionTrace `json:"trace,omitempty"`
}
