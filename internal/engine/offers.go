package engine

import "github.com/ledgerlens/ledgerlens/internal/model"

// defaultOffers is the built-in catalog. Each offer carries a body
// template used when no content generator is configured or generation
// fails; generated content replaces the template, never the guardrails.
var defaultOffers = []model.Offer{
	{
		ID:    "balance-paydown-plan",
		Title: "Build a Balance Paydown Plan",
		Body: "Your credit card balance is costing you interest every month. " +
			"Paying more than the minimum, even a little, shortens the payoff timeline considerably.",
		Rationale: "High utilization and interest charges suggest a paydown plan would save money.",
		Personas:  []model.PersonaID{model.PersonaHighUtilization},
	},
	{
		ID:    "balance-transfer-card",
		Title: "Consider a Balance Transfer Card",
		Body: "A card with a promotional transfer rate could pause interest while you pay down " +
			"your existing balance.",
		Rationale:      "Interest charges on a revolving balance can often be reduced with a transfer.",
		Personas:       []model.PersonaID{model.PersonaHighUtilization},
		MinCreditScore: 670,
	},
	{
		ID:    "income-smoothing-buffer",
		Title: "Set Up an Income Smoothing Buffer",
		Body: "With income arriving irregularly, a dedicated buffer account smooths the gap " +
			"between paydays and keeps bills covered.",
		Rationale: "Irregular income with a thin cash-flow buffer benefits from deliberate smoothing.",
		Personas:  []model.PersonaID{model.PersonaVariableIncome},
	},
	{
		ID:    "subscription-audit",
		Title: "Audit Your Subscriptions",
		Body: "Recurring charges add up quietly. Reviewing each subscription once a quarter " +
			"usually finds at least one that is no longer worth it.",
		Rationale: "A meaningful share of spending goes to recurring merchants.",
		Personas:  []model.PersonaID{model.PersonaSubscriptionHeavy},
	},
	{
		ID:    "high-yield-savings",
		Title: "Move Savings to a High-Yield Account",
		Body: "Your savings habit is working. A high-yield account would let the balance you have " +
			"already built earn more.",
		Rationale: "Consistent net inflow to savings compounds better at a higher rate.",
		Personas:  []model.PersonaID{model.PersonaSavingsBuilder},
		BlockedIf: []model.AccountSubtype{model.SubtypeMoneyMarket},
	},
	{
		ID:    "rewards-card-upgrade",
		Title: "Upgrade to a Rewards Card",
		Body: "Your spending is steady and your card usage is light. A rewards card would return " +
			"a portion of everyday spending without changing your habits.",
		Rationale: "Low utilization and steady income fit a rewards card profile.",
		Personas:  []model.PersonaID{model.PersonaSavingsBuilder, model.PersonaBalanced},
		MinIncome: 3000,
	},
	{
		ID:    "spending-checkup",
		Title: "Monthly Spending Checkup",
		Body: "A short monthly review of where money went keeps small drifts from becoming " +
			"habits. Fifteen minutes is usually enough.",
		Rationale: "A balanced profile stays balanced with light, regular review.",
	},
}

// OffersForPersona returns the catalog entries targeting the persona.
func OffersForPersona(persona model.PersonaID) []model.Offer {
	var offers []model.Offer
	for _, offer := range defaultOffers {
		if offer.AppliesTo(persona) {
			offers = append(offers, offer)
		}
	}
	return offers
}
