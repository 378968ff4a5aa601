package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("LENS_TEST_DIR", "/tmp/lens")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"absolute", "/var/data/lens.db", "/var/data/lens.db"},
		{"tilde prefix", "~/data/lens.db", filepath.Join(home, "data", "lens.db")},
		{"bare tilde", "~", home},
		{"env var", "$LENS_TEST_DIR/lens.db", "/tmp/lens/lens.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExpandPath(tt.input))
		})
	}
}

func TestDatabasePath(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path, err := DatabasePath()
	require.NoError(t, err)
	assert.Contains(t, path, filepath.Join(".local", "share", "lens"))

	viper.Set("database.path", "/custom/path/lens.db")
	path, err = DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/custom/path/lens.db", path)
}

func TestLoadLLMConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	// Missing key fails for the default provider.
	_, err := LoadLLMConfig()
	assert.Error(t, err)

	// Key from the environment is picked up.
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	cfg, err := LoadLLMConfig()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "test-key", cfg.APIKey)

	// Viper settings win over environment.
	viper.Set("llm.provider", "openai")
	viper.Set("llm.openai_api_key", "openai-key")
	viper.Set("llm.model", "gpt-4o")
	cfg, err = LoadLLMConfig()
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "openai-key", cfg.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Model)

	// Unknown providers are rejected.
	viper.Set("llm.provider", "cohere")
	_, err = LoadLLMConfig()
	assert.Error(t, err)
}

func TestLoadPlaidConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("PLAID_CLIENT_ID", "env-client")
	t.Setenv("PLAID_SECRET", "env-secret")
	t.Setenv("PLAID_ACCESS_TOKEN", "env-token")

	cfg := LoadPlaidConfig()
	assert.Equal(t, "env-client", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.Secret)
	assert.Equal(t, "env-token", cfg.AccessToken)
	assert.Equal(t, "sandbox", cfg.Environment)

	viper.Set("plaid.client_id", "viper-client")
	viper.Set("plaid.environment", "production")
	cfg = LoadPlaidConfig()
	assert.Equal(t, "viper-client", cfg.ClientID)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoadSheetsConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_NAME", "")

	// No auth configured anywhere.
	_, err := LoadSheetsConfig()
	assert.Error(t, err)

	viper.Set("sheets.service_account_path", "/path/to/key.json")
	viper.Set("sheets.spreadsheet_id", "sheet-123")
	cfg, err := LoadSheetsConfig()
	require.NoError(t, err)
	assert.Equal(t, "/path/to/key.json", cfg.ServiceAccountPath)
	assert.Equal(t, "sheet-123", cfg.SpreadsheetID)
	assert.Equal(t, "LedgerLens Report", cfg.SpreadsheetName)
}
