package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/cli"
	"github.com/spf13/cobra"
)

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate guardrailed recommendations for a user",
		Long: `Classify the user, evaluate the offer catalog for their persona, and
run every candidate through the consent, eligibility, and tone gates.
Each emitted recommendation is persisted with its full decision trace;
rejected candidates are logged and omitted, never substituted.`,
		RunE: runRecommend,
	}

	cmd.Flags().StringP("user", "u", "", "User ID to generate recommendations for")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	eng, stopCache := buildEngine(store)
	defer stopCache()

	slog.Info("Generating recommendations", "user_id", userID)

	recommendations, err := eng.GenerateRecommendations(ctx, userID)
	if err != nil {
		return fmt.Errorf("recommendation generation failed: %w", err)
	}

	if len(recommendations) == 0 {
		slog.Info(cli.FormatWarning("No candidates passed the guardrails"))
		return nil
	}

	for _, rec := range recommendations {
		content := rec.Content + "\n\n" + cli.SubtleStyle.Render(rec.Rationale)
		if rec.Trace != nil {
			gates := make([]string, 0, len(rec.Trace.Guardrails))
			for _, g := range rec.Trace.Guardrails {
				status := "pass"
				if !g.Passed {
					status = "warn"
					if g.Blocking {
						status = "fail"
					}
				}
				gates = append(gates, fmt.Sprintf("%s=%s", g.Gate, status))
			}
			content += "\n" + cli.SubtleStyle.Render("gates: "+strings.Join(gates, " "))
		}
		fmt.Println(cli.RenderBox(rec.Title, content))
	}

	slog.Info(cli.FormatSuccess(fmt.Sprintf("Generated %d recommendations", len(recommendations))))
	return nil
}
