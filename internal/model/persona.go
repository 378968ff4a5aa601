package model

import "time"

// PersonaID identifies one of the five mutually exclusive behavioral
// personas. Lower IDs have higher classification priority.
type PersonaID int

const (
	// PersonaHighUtilization matches users carrying strained credit cards.
	PersonaHighUtilization PersonaID = 1
	// PersonaVariableIncome matches users with irregular pay and a thin buffer.
	PersonaVariableIncome PersonaID = 2
	// PersonaSubscriptionHeavy matches users with a heavy recurring-spend load.
	PersonaSubscriptionHeavy PersonaID = 3
	// PersonaSavingsBuilder matches users actively growing savings.
	PersonaSavingsBuilder PersonaID = 4
	// PersonaBalanced is the default when no specific criteria are met.
	PersonaBalanced PersonaID = 5
)

// Name returns the human-readable persona name.
func (p PersonaID) Name() string {
	switch p {
	case PersonaHighUtilization:
		return "High Utilization"
	case PersonaVariableIncome:
		return "Variable Income Budgeter"
	case PersonaSubscriptionHeavy:
		return "Subscription-Heavy"
	case PersonaSavingsBuilder:
		return "Savings Builder"
	case PersonaBalanced:
		return "Custom/Balanced"
	default:
		return "Unknown"
	}
}

// Valid reports whether the ID is one of the five personas.
func (p PersonaID) Valid() bool {
	return p >= PersonaHighUtilization && p <= PersonaBalanced
}

// PersonaAssignment is a user's classification result. Exactly one active
// assignment exists per user; prior assignments live in an append-only
// history and are never edited.
type PersonaAssignment struct {
	AssignedAt  time.Time     `json:"assigned_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	UserID      string        `json:"user_id"`
	PersonaName string        `json:"persona_name"`
	Rationale   string        `json:"rationale"`
	Criteria    []string      `json:"criteria"`
	Signals     SignalWindows `json:"signals"`
	ID          int64         `json:"id"`
	Persona     PersonaID     `json:"persona_id"`
}
