package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgerlens/ledgerlens/internal/cache"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/engine"
	"github.com/ledgerlens/ledgerlens/internal/guardrail"
	"github.com/ledgerlens/ledgerlens/internal/llm"
	"github.com/ledgerlens/ledgerlens/internal/persona"
	"github.com/ledgerlens/ledgerlens/internal/signal"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

// initStorage opens the database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// createLLMClient builds the configured LLM client, or returns nil when
// no provider credentials are available. Callers degrade to templates
// and tone-unknown results without one.
func createLLMClient() llm.Client {
	cfg, err := config.LoadLLMConfig()
	if err != nil {
		slog.Warn("LLM unavailable, using template content and skipping tone scoring", "reason", err)
		return nil
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		slog.Warn("Failed to create LLM client, using template content", "error", err)
		return nil
	}

	return client
}

// buildEngine wires the full recommendation pipeline over one storage
// handle. The returned cleanup stops the feature cache.
func buildEngine(store *storage.SQLiteStorage) (*engine.RecommendationEngine, func()) {
	featureCache := cache.New()
	generator := signal.NewGenerator(store, featureCache)
	classifier := persona.NewClassifier(store, generator)
	eligibility := guardrail.NewEligibility(store)

	llmClient := createLLMClient()

	var opts []engine.Option
	var tone *guardrail.Tone
	if llmClient != nil {
		tone = guardrail.NewTone(llmClient)
		opts = append(opts, engine.WithContentGenerator(llmClient))
	} else {
		tone = guardrail.NewTone(nil)
	}

	eng := engine.New(store, classifier, eligibility, tone, opts...)
	return eng, featureCache.Close
}
