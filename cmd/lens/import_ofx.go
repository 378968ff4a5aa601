package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ledgerlens/ledgerlens/internal/cache"
	"github.com/ledgerlens/ledgerlens/internal/cli"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/ofx"
	"github.com/ledgerlens/ledgerlens/internal/plaid"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import financial transactions from OFX or QFX (Quicken) files exported
from your bank.

Examples:
  # Import single file
  lens import-ofx --user user-1 ~/Downloads/chase_may_2025.qfx

  # Import all QFX files in a directory
  lens import-ofx --user user-1 ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().StringP("user", "u", "", "User ID to attribute imported transactions to")
	cmd.Flags().Bool("dry-run", false, "Preview import without saving")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, err := os.Stat(pattern); err == nil {
				allFiles = append(allFiles, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
		} else {
			allFiles = append(allFiles, matches...)
		}
	}

	if len(allFiles) == 0 {
		return fmt.Errorf("no files found to import")
	}

	slog.Info(cli.FormatTitle("Importing OFX files"),
		"file_count", len(allFiles),
		"dry_run", dryRun)

	var allTransactions []model.Transaction
	seen := make(map[string]bool)

	parser := ofx.NewParser()
	bar := cli.NewProgressBar(os.Stderr, len(allFiles), "Parsing files...")

	for _, filePath := range allFiles {
		transactions, err := parseOFXFile(ctx, parser, filePath, userID)
		_ = bar.Add(1)
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", filePath, "error", err)
			continue
		}

		added := 0
		for _, tx := range transactions {
			if seen[tx.Hash] {
				continue
			}
			seen[tx.Hash] = true
			allTransactions = append(allTransactions, tx)
			added++
		}

		slog.Info("Parsed file",
			"file", filepath.Base(filePath),
			"transactions", len(transactions),
			"new", added)
	}

	if len(allTransactions) == 0 {
		slog.Warn("No transactions found in any file")
		return nil
	}

	if dryRun {
		slog.Info(cli.FormatWarning("Dry run mode - not saving to database"))
		fmt.Println(cli.RenderBox("Preview",
			fmt.Sprintf("Would import %d transactions for %s", len(allTransactions), userID)))
		return nil
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	featureCache := cache.New()
	defer featureCache.Close()

	importer := plaid.NewImporter(nil, store, featureCache)
	if err := importer.ImportTransactions(ctx, userID, allTransactions); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	slog.Info(cli.FormatSuccess(fmt.Sprintf("Imported %d transactions", len(allTransactions))))
	return nil
}

func parseOFXFile(ctx context.Context, parser *ofx.Parser, filePath, userID string) ([]model.Transaction, error) {
	f, err := os.Open(filePath) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return parser.ParseFile(ctx, f, userID)
}
