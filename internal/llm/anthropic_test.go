package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicTestServer(t *testing.T, replyText string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body["system"])

		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":      "msg_test",
				"type":    "message",
				"role":    "assistant",
				"content": []map[string]string{{"type": "text", "text": replyText}},
			})
		}
	}))
}

func newTestAnthropicClient(t *testing.T, serverURL string) *anthropicClient {
	t.Helper()
	client, err := newAnthropicClient(Config{APIKey: "test-key"})
	require.NoError(t, err)
	ac, ok := client.(*anthropicClient)
	require.True(t, ok)
	ac.baseURL = serverURL
	return ac
}

func TestAnthropicScoreTone(t *testing.T) {
	server := anthropicTestServer(t, `{"score": 8.5, "reasoning": "supportive"}`, http.StatusOK)
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	score, err := client.ScoreTone(context.Background(), "some recommendation text")

	require.NoError(t, err)
	assert.Equal(t, 8.5, score)
}

func TestAnthropicScoreTone_APIError(t *testing.T) {
	server := anthropicTestServer(t, "", http.StatusTooManyRequests)
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	_, err := client.ScoreTone(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestAnthropicGenerateContent(t *testing.T) {
	server := anthropicTestServer(t, "Paying more than the minimum will reduce your interest costs.", http.StatusOK)
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	content, err := client.GenerateContent(context.Background(), "write a note about card balances")

	require.NoError(t, err)
	assert.Contains(t, content, "minimum")
}

func TestAnthropicGenerateContent_Empty(t *testing.T) {
	server := anthropicTestServer(t, "   ", http.StatusOK)
	defer server.Close()

	client := newTestAnthropicClient(t, server.URL)
	_, err := client.GenerateContent(context.Background(), "prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty content")
}
