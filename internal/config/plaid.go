package config

import (
	"os"

	"github.com/ledgerlens/ledgerlens/internal/plaid"
	"github.com/spf13/viper"
)

// LoadPlaidConfig builds a Plaid client configuration from Viper
// settings, falling back to PLAID_* environment variables.
func LoadPlaidConfig() plaid.Config {
	config := plaid.Config{
		ClientID:    viper.GetString("plaid.client_id"),
		Secret:      viper.GetString("plaid.secret"),
		Environment: viper.GetString("plaid.environment"),
		AccessToken: viper.GetString("plaid.access_token"),
	}

	if config.ClientID == "" {
		config.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if config.Secret == "" {
		config.Secret = os.Getenv("PLAID_SECRET")
	}
	if config.AccessToken == "" {
		config.AccessToken = os.Getenv("PLAID_ACCESS_TOKEN")
	}
	if config.Environment == "" {
		config.Environment = "sandbox"
	}

	return config
}
