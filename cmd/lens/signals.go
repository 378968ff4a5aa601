package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ledgerlens/ledgerlens/internal/cache"
	"github.com/ledgerlens/ledgerlens/internal/signal"
	"github.com/spf13/cobra"
)

func signalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Compute behavioral signals for a user",
		Long: `Compute credit, income, savings, and subscription signals over the
short and long analysis windows and print them as JSON.

The user must have granted consent; without it no data is read.`,
		RunE: runSignals,
	}

	cmd.Flags().StringP("user", "u", "", "User ID to compute signals for")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runSignals(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	featureCache := cache.New()
	defer featureCache.Close()

	generator := signal.NewGenerator(store, featureCache)

	slog.Info("Computing signals", "user_id", userID)

	windows, err := generator.GenerateAll(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to compute signals: %w", err)
	}

	output, err := json.MarshalIndent(windows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode signals: %w", err)
	}

	fmt.Println(string(output))
	return nil
}
