package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToneScore(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"score": 8.5, "reasoning": "supportive and clear"}`,
			want:    8.5,
		},
		{
			name:    "json wrapped in markdown fence",
			content: "```json\n{\"score\": 6, \"reasoning\": \"slightly pushy\"}\n```",
			want:    6,
		},
		{
			name:    "score out of range",
			content: `{"score": 14, "reasoning": "nonsense"}`,
			wantErr: true,
		},
		{
			name:    "negative score",
			content: `{"score": -1, "reasoning": "nonsense"}`,
			wantErr: true,
		},
		{
			name:    "not json at all",
			content: "This text sounds fine to me.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseToneScore(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no wrapper", content: `{"a": 1}`, want: `{"a": 1}`},
		{name: "json fence", content: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "bare fence", content: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "surrounding whitespace", content: "  {\"a\": 1}  ", want: `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.content))
		})
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "openai", config: Config{Provider: "openai", APIKey: "test-key"}},
		{name: "anthropic", config: Config{Provider: "anthropic", APIKey: "test-key"}},
		{name: "case insensitive", config: Config{Provider: "Anthropic", APIKey: "test-key"}},
		{name: "unknown provider", config: Config{Provider: "mystery", APIKey: "test-key"}, wantErr: true},
		{name: "missing api key", config: Config{Provider: "openai"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}
