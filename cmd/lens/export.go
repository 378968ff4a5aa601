package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/cli"
	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/sheets"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's persona and recommendations to Google Sheets",
		Long: `Write the user's active persona assignment, matched criteria, and
recommendation decisions to a Google Sheet. Configure authentication
via the sheets section of the config file or GOOGLE_SHEETS_*
environment variables.`,
		RunE: runExport,
	}

	cmd.Flags().StringP("user", "u", "", "User ID to export")
	cmd.Flags().IntP("limit", "n", 50, "Maximum number of recommendations to include")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")
	limit, _ := cmd.Flags().GetInt("limit")

	sheetsConfig, err := config.LoadSheetsConfig()
	if err != nil {
		return fmt.Errorf("sheets configuration error: %w", err)
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	report := &sheets.Report{
		GeneratedAt: time.Now(),
		UserID:      userID,
	}

	profile, err := store.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrUserNotFound) {
			return fmt.Errorf("failed to load profile: %w", err)
		}
	} else {
		report.DisplayName = profile.DisplayName
	}

	assignment, err := store.GetPersonaAssignment(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to load persona assignment: %w", err)
	}
	report.Assignment = assignment

	recommendations, err := store.GetRecommendations(ctx, userID, limit)
	if err != nil {
		return fmt.Errorf("failed to load recommendations: %w", err)
	}
	report.Recommendations = recommendations

	if report.Assignment == nil && len(report.Recommendations) == 0 {
		slog.Info(cli.FormatWarning("Nothing to export for user"), "user_id", userID)
		return nil
	}

	writer, err := sheets.NewWriter(ctx, *sheetsConfig, slog.Default().With("component", "sheets"))
	if err != nil {
		return fmt.Errorf("failed to create sheets writer: %w", err)
	}

	if err := writer.Write(ctx, report); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	slog.Info(cli.FormatSuccess("Export complete"),
		"user_id", userID,
		"recommendations", len(report.Recommendations))
	return nil
}
