// Package llm provides language model clients for tone scoring and
// recommendation content generation. It supports OpenAI and Anthropic
// over their HTTP APIs.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Client is the provider-neutral interface. It satisfies both
// service.ToneScorer and service.ContentGenerator.
type Client interface {
	ScoreTone(ctx context.Context, text string) (float64, error)
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Config holds configuration for an LLM client.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

const toneSystemPrompt = "You are a tone reviewer for consumer financial guidance. " +
	"Score the text from 0 to 10 for supportive, non-judgmental, non-predatory tone, " +
	"where 10 is ideal. Respond with ONLY a valid JSON object of the form " +
	`{"score": <number>, "reasoning": "<short explanation>"}. ` +
	"Do not include any other text."

const contentSystemPrompt = "You are a financial guidance writer. Write short, " +
	"supportive, plain-language recommendation content. Respond with the content " +
	"text only, no headings or markdown formatting."

// toneResponse is the JSON document the tone prompt requests.
type toneResponse struct {
	Reasoning string  `json:"reasoning"`
	Score     float64 `json:"score"`
}

// parseToneScore extracts and validates the score from a tone response.
func parseToneScore(content string) (float64, error) {
	content = cleanMarkdownWrapper(content)

	var resp toneResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return 0, fmt.Errorf("failed to parse tone response: %w", err)
	}

	if resp.Score < 0 || resp.Score > 10 {
		return 0, fmt.Errorf("tone score %.2f is outside the 0-10 range", resp.Score)
	}

	return resp.Score, nil
}

// cleanMarkdownWrapper strips a ```json fence if the model wrapped its
// response in one despite the instructions.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}
