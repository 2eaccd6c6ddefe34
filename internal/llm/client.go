// Package llm wraps the external chat-completion API used for free-form
// chatbot replies.
//
// The client is stateless: conversation memory lives in the dispatcher's
// per-phone session, which sends the full message transcript on every call.
// Failures are returned to the caller; the dispatcher falls back to a
// canned reply and never retries.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Role constants for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyCompletion is returned when the API answers 200 with no choices.
var ErrEmptyCompletion = errors.New("llm: completion returned no choices")

// maxReplyRunes bounds the assistant reply passed downstream.
const maxReplyRunes = 4096

// Message is one entry of a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls the chat-completion endpoint.
type Client struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Model names the completion model (default gpt-4o-mini).
	Model string
	// Timeout bounds each call (default 30s).
	Timeout time.Duration

	httpClient *http.Client
}

// NewClient constructs a completion client with the default model and
// timeout.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		Model:      "gpt-4o-mini",
		Timeout:    30 * time.Second,
		httpClient: &http.Client{},
	}
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete sends the transcript and returns the assistant reply, truncated
// to the downstream limit.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("llm: api key not configured")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := c.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	payload, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var out completionResponse
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(body, &out) == nil && out.Error != nil {
			return "", fmt.Errorf("llm: completion failed (status %d): %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("llm: completion failed (status %d): %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	reply := strings.TrimSpace(out.Choices[0].Message.Content)
	if runes := []rune(reply); len(runes) > maxReplyRunes {
		reply = string(runes[:maxReplyRunes])
	}
	return reply, nil
}
