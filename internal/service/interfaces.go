// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

// AccountFilter defines filtering options for account queries.
type AccountFilter struct {
	HolderCategory model.HolderCategory
	Types          []model.AccountType
	Subtypes       []model.AccountSubtype
}

// TransactionFilter defines filtering options for transaction queries.
// Pending transactions are excluded unless IncludePending is set; signal
// computation never sets it.
type TransactionFilter struct {
	StartDate      *time.Time
	EndDate        *time.Time
	AccountIDs     []string
	Limit          int
	IncludePending bool
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Account operations
	SaveAccounts(ctx context.Context, accounts []model.Account) error
	GetAccounts(ctx context.Context, userID string, filter AccountFilter) ([]model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	GetTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error)

	// Liability operations
	SaveLiability(ctx context.Context, liability *model.Liability) error
	GetLiability(ctx context.Context, accountID string) (*model.Liability, error)

	// Profile and consent operations
	SaveProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	GetConsent(ctx context.Context, userID string) (bool, error)
	SetConsent(ctx context.Context, userID string, granted bool) error

	// Persona assignment operations. ReplacePersonaAssignment appends the
	// previous active assignment to history and installs the new one in a
	// single database transaction.
	GetPersonaAssignment(ctx context.Context, userID string) (*model.PersonaAssignment, error)
	SavePersonaAssignment(ctx context.Context, assignment *model.PersonaAssignment) error
	ReplacePersonaAssignment(ctx context.Context, previous, next *model.PersonaAssignment) error
	UpdateAssignmentSignals(ctx context.Context, userID string, signals model.SignalWindows) error
	GetPersonaHistory(ctx context.Context, userID string, limit int) ([]model.PersonaAssignment, error)

	// Recommendation operations
	SaveRecommendation(ctx context.Context, rec *model.Recommendation) error
	GetRecommendations(ctx context.Context, userID string, limit int) ([]model.Recommendation, error)
	GetRecommendationByID(ctx context.Context, id string) (*model.Recommendation, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// CacheKey identifies one user's cached bundle pair for one category.
type CacheKey struct {
	Category model.SignalCategory
	UserID   string
}

// FeatureCache memoizes detector output per (category, user) with a TTL.
// Invalidation is explicit: any mutation of a user's underlying account,
// transaction, or liability data must invalidate synchronously.
type FeatureCache interface {
	Get(key CacheKey) (any, bool)
	Set(key CacheKey, value any, ttl time.Duration)
	Invalidate(key CacheKey)
	InvalidateUser(userID string)
}

// ToneScorer scores generated text 0-10 for tone appropriateness. The
// capability is opaque and may be unavailable; callers must treat failures
// and timeouts as advisory, never blocking.
type ToneScorer interface {
	ScoreTone(ctx context.Context, text string) (float64, error)
}

// ContentGenerator produces recommendation text from a prompt.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// RetryOptions configures retry behavior for provider operations. The
// signal/guardrail core never retries; this exists for the ingest boundary.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
