package simplefin

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// authState is the persisted SimpleFIN authentication state. The access
// URL is long-lived, so it is saved after the first claim and reused.
type authState struct {
	ClaimedAt  time.Time `json:"claimed_at"`
	AccessURL  string    `json:"access_url"`
	ClaimToken string    `json:"claim_token_hash"`
}

// loadOrClaimAuth loads a saved access URL or claims the token for a new
// one. Claim tokens are single-use, so losing the saved state means a
// new token must be issued by the bridge.
func loadOrClaimAuth(token string) (*authState, error) {
	stateFile, err := stateFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state file path: %w", err)
	}

	auth, err := loadAuthState(stateFile)
	if err == nil && auth.AccessURL != "" {
		slog.Debug("Using saved SimpleFIN access URL",
			"claimed_at", auth.ClaimedAt.Format("2006-01-02"),
			"state_file", stateFile)
		return auth, nil
	}

	slog.Info("No saved SimpleFIN auth found, claiming token")
	accessURL, err := claimToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to claim token: %w", err)
	}

	newAuth := &authState{
		AccessURL:  accessURL,
		ClaimedAt:  time.Now(),
		ClaimToken: redactToken(token),
	}

	if err := saveAuthState(stateFile, newAuth); err != nil {
		return nil, fmt.Errorf("failed to save auth state: %w", err)
	}

	slog.Info("Claimed and saved SimpleFIN access URL", "state_file", stateFile)
	return newAuth, nil
}

func stateFilePath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}

	lensDir := filepath.Join(dataDir, "lens")
	if err := os.MkdirAll(lensDir, 0700); err != nil {
		return "", err
	}

	return filepath.Join(lensDir, "simplefin_auth.json"), nil
}

func loadAuthState(path string) (*authState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var auth authState
	if err := json.Unmarshal(data, &auth); err != nil {
		return nil, err
	}

	return &auth, nil
}

func saveAuthState(path string, auth *authState) error {
	data, err := json.MarshalIndent(auth, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// redactToken keeps just enough of the token to recognize which claim
// produced the saved state.
func redactToken(token string) string {
	if len(token) > 16 {
		return token[:8] + "..." + token[len(token)-8:]
	}
	return "short_token"
}
