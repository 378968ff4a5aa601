package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/cache"
	"github.com/ledgerlens/ledgerlens/internal/cli"
	"github.com/ledgerlens/ledgerlens/internal/config"
	"github.com/ledgerlens/ledgerlens/internal/plaid"
	"github.com/ledgerlens/ledgerlens/internal/simplefin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import accounts, transactions, and liabilities from a provider",
		Long: `Import financial data from a connected provider into the local
database. Transactions are deduplicated automatically and the user's
cached signals are invalidated so the next computation sees fresh data.

Supported sources are plaid (the default) and simplefin.`,
		RunE: runImport,
	}

	cmd.Flags().StringP("user", "u", "", "User ID to attribute imported data to")
	cmd.Flags().String("source", "plaid", "Data source to import from (plaid or simplefin)")
	cmd.Flags().StringP("start-date", "s", "", "Start date for transaction import (format: 2006-01-02)")
	cmd.Flags().StringP("end-date", "e", "", "End date for transaction import (format: 2006-01-02)")
	cmd.Flags().IntP("days", "d", 180, "Number of days to import (used if start/end dates not specified)")
	_ = cmd.MarkFlagRequired("user")

	_ = viper.BindPFlag("import.start_date", cmd.Flags().Lookup("start-date"))
	_ = viper.BindPFlag("import.end_date", cmd.Flags().Lookup("end-date"))
	_ = viper.BindPFlag("import.days", cmd.Flags().Lookup("days"))

	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")
	source, _ := cmd.Flags().GetString("source")

	provider, err := buildProvider(source)
	if err != nil {
		return err
	}

	startDate, endDate, err := parseDateRange()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	slog.Info(cli.FormatTitle("Importing from " + source))
	slog.Info("Date range",
		"start", startDate.Format("2006-01-02"),
		"end", endDate.Format("2006-01-02"))

	featureCache := cache.New()
	defer featureCache.Close()

	bar := cli.NewProgressBar(os.Stderr, 3, "Importing from "+source+"...")
	importer := plaid.NewImporter(provider, store, featureCache, plaid.WithProgress(func(_ string, _ int) {
		_ = bar.Add(1)
	}))

	result, err := importer.Sync(ctx, userID, startDate, endDate)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	content := fmt.Sprintf("Accounts: %d\nTransactions: %d\nLiabilities: %d",
		result.Accounts, result.Transactions, result.Liabilities)
	fmt.Println(cli.RenderBox("Import Summary", content))

	slog.Info(cli.FormatSuccess("Import complete"))
	return nil
}

func buildProvider(source string) (plaid.Provider, error) {
	switch source {
	case "plaid":
		client, err := plaid.NewClient(config.LoadPlaidConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create Plaid client: %w", err)
		}
		return client, nil
	case "simplefin":
		token := config.LoadSimpleFINToken()
		if token == "" {
			return nil, fmt.Errorf("SimpleFIN token not configured (set simplefin.token or SIMPLEFIN_TOKEN)")
		}
		client, err := simplefin.NewClient(token)
		if err != nil {
			return nil, fmt.Errorf("failed to create SimpleFIN client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown import source %q (expected plaid or simplefin)", source)
	}
}

func parseDateRange() (startDate, endDate time.Time, err error) {
	startStr := viper.GetString("import.start_date")
	endStr := viper.GetString("import.end_date")

	if startStr != "" && endStr != "" {
		startDate, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date format: %w", err)
		}

		endDate, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date format: %w", err)
		}

		return startDate, endDate, nil
	}

	days := viper.GetInt("import.days")
	if days <= 0 {
		days = 180
	}

	endDate = time.Now()
	startDate = endDate.AddDate(0, 0, -days)

	return startDate, endDate, nil
}
