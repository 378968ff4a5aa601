package common

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"console debug", "debug", "console", false},
		{"json info", "info", "json", false},
		{"console warn", "warn", "console", false},
		{"json error", "error", "json", false},
		{"invalid level", "verbose", "console", true},
		{"invalid format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := setupLogger(&buf, tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSetupLogger_LevelFiltersOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	require.NoError(t, setupLogger(&buf, "warn", "json"))

	slog.Debug("hidden")
	slog.Warn("shown", "user_id", "user-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "user-1", entry["user_id"])

	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}
