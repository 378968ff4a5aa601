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

func openAITestServer(t *testing.T, replyText string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-test",
				"object": "chat.completion",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": replyText},
					"finish_reason": "stop",
				}},
			})
		}
	}))
}

func newTestOpenAIClient(t *testing.T, serverURL string) *openAIClient {
	t.Helper()
	client, err := newOpenAIClient(Config{APIKey: "test-key"})
	require.NoError(t, err)
	oc, ok := client.(*openAIClient)
	require.True(t, ok)
	oc.baseURL = serverURL
	return oc
}

func TestOpenAIScoreTone(t *testing.T) {
	server := openAITestServer(t, `{"score": 7, "reasoning": "neutral"}`, http.StatusOK)
	defer server.Close()

	client := newTestOpenAIClient(t, server.URL)
	score, err := client.ScoreTone(context.Background(), "some text")

	require.NoError(t, err)
	assert.Equal(t, 7.0, score)
}

func TestOpenAIScoreTone_MalformedResponse(t *testing.T) {
	server := openAITestServer(t, "I'd rate this an 8 out of 10.", http.StatusOK)
	defer server.Close()

	client := newTestOpenAIClient(t, server.URL)
	_, err := client.ScoreTone(context.Background(), "some text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse tone response")
}

func TestOpenAIGenerateContent(t *testing.T) {
	server := openAITestServer(t, "A savings habit of $50 per week adds up quickly.", http.StatusOK)
	defer server.Close()

	client := newTestOpenAIClient(t, server.URL)
	content, err := client.GenerateContent(context.Background(), "write about saving")

	require.NoError(t, err)
	assert.Contains(t, content, "savings habit")
}

func TestOpenAIGenerateContent_APIError(t *testing.T) {
	server := openAITestServer(t, "", http.StatusInternalServerError)
	defer server.Close()

	client := newTestOpenAIClient(t, server.URL)
	_, err := client.GenerateContent(context.Background(), "prompt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
