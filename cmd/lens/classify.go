package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/cache"
	"github.com/ledgerlens/ledgerlens/internal/cli"
	"github.com/ledgerlens/ledgerlens/internal/persona"
	"github.com/ledgerlens/ledgerlens/internal/signal"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Assign a persona to a user",
		Long: `Compute the user's behavioral signals and assign exactly one persona
based on the priority-ordered rules. The active assignment and its
history are persisted; re-running with unchanged signals is a no-op.

Examples:
  lens classify --user user-1
  lens classify --user user-1 --history`,
		RunE: runClassify,
	}

	cmd.Flags().StringP("user", "u", "", "User ID to classify")
	cmd.Flags().Bool("history", false, "Show prior persona assignments")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")
	showHistory, _ := cmd.Flags().GetBool("history")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	featureCache := cache.New()
	defer featureCache.Close()

	generator := signal.NewGenerator(store, featureCache)
	classifier := persona.NewClassifier(store, generator)

	slog.Info("Classifying user", "user_id", userID)

	assignment, err := classifier.AssignPersona(ctx, userID, nil)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	content := fmt.Sprintf("Persona: %s\nAssigned: %s\n\n%s\n\nCriteria:\n",
		assignment.PersonaName,
		assignment.AssignedAt.Format("2006-01-02 15:04"),
		assignment.Rationale)
	for _, criterion := range assignment.Criteria {
		content += "  - " + criterion + "\n"
	}

	fmt.Println(cli.RenderBox("Classification", strings.TrimRight(content, "\n")))

	if showHistory {
		history, err := store.GetPersonaHistory(ctx, userID, 10)
		if err != nil {
			return fmt.Errorf("failed to load persona history: %w", err)
		}

		if len(history) == 0 {
			slog.Info("No prior assignments")
			return nil
		}

		historyContent := ""
		for _, prior := range history {
			historyContent += fmt.Sprintf("%s  %s\n",
				prior.AssignedAt.Format("2006-01-02"), prior.PersonaName)
		}
		fmt.Println(cli.RenderBox("Prior Assignments", strings.TrimRight(historyContent, "\n")))
	}

	return nil
}
