package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ledgerlens/ledgerlens/internal/cli"
	"github.com/ledgerlens/ledgerlens/internal/common"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/spf13/cobra"
)

func consentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consent",
		Short: "Manage a user's data-processing consent",
		Long: `View or change a user's consent flag. Signal computation, persona
classification, and recommendation generation all refuse to read a
user's data without granted consent.`,
	}

	cmd.PersistentFlags().StringP("user", "u", "", "User ID")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(consentGrantCmd())
	cmd.AddCommand(consentRevokeCmd())
	cmd.AddCommand(consentStatusCmd())

	return cmd
}

func consentGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant consent for data processing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return setConsent(cmd, true)
		},
	}
	cmd.Flags().String("name", "", "Display name (used when creating a new profile)")
	return cmd
}

func consentRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke",
		Short: "Revoke consent for data processing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return setConsent(cmd, false)
		},
	}
}

func consentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the user's current consent state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			userID, _ := cmd.Flags().GetString("user")

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			profile, err := store.GetProfile(ctx, userID)
			if err != nil {
				if errors.Is(err, common.ErrUserNotFound) {
					slog.Info(cli.FormatWarning("No profile found for user"), "user_id", userID)
					return nil
				}
				return fmt.Errorf("failed to load profile: %w", err)
			}

			state := "revoked"
			if profile.ConsentGranted {
				state = "granted"
			}
			content := fmt.Sprintf("User: %s\nConsent: %s\nUpdated: %s",
				profile.UserID, state, profile.ConsentUpdatedAt.Format("2006-01-02 15:04"))
			fmt.Println(cli.RenderBox("Consent", content))
			return nil
		},
	}
}

func setConsent(cmd *cobra.Command, granted bool) error {
	ctx := cmd.Context()
	userID, _ := cmd.Flags().GetString("user")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	err = store.SetConsent(ctx, userID, granted)
	if errors.Is(err, common.ErrUserNotFound) && granted {
		// First grant creates the profile.
		name, _ := cmd.Flags().GetString("name")
		profile := &model.Profile{
			UserID:         userID,
			DisplayName:    name,
			ConsentGranted: true,
		}
		if saveErr := store.SaveProfile(ctx, profile); saveErr != nil {
			return fmt.Errorf("failed to create profile: %w", saveErr)
		}
		slog.Info(cli.FormatSuccess("Created profile and granted consent"), "user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update consent: %w", err)
	}

	if granted {
		slog.Info(cli.FormatSuccess("Consent granted"), "user_id", userID)
	} else {
		slog.Info(cli.FormatWarning("Consent revoked"), "user_id", userID)
	}
	return nil
}
