// Package llm calls an OpenAI-compatible chat-completions endpoint. The
// endpoint is usually the local gateway's model proxy, auto-discovered from
// its config file.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Role values for chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one completion call.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ClientConfig configures the completion client.
type ClientConfig struct {
	// BaseURL overrides endpoint discovery when set.
	BaseURL string
	// Model overrides model discovery when set.
	Model string
	// HTTPClient defaults to http.DefaultClient; callers set per-request
	// deadlines through ctx.
	HTTPClient *http.Client
}

// Client issues chat completions.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient builds a completion client, discovering endpoint and model for
// any field left unset.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	model := strings.TrimSpace(cfg.Model)
	if baseURL == "" || model == "" {
		discovered := Discover()
		if baseURL == "" {
			baseURL = discovered.BaseURL
		}
		if model == "" {
			model = discovered.Model
		}
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
	}
}

// Model returns the model the client resolves requests against.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete sends one chat-completion request and returns the first choice's
// trimmed content.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c == nil {
		return "", fmt.Errorf("llm client is nil")
	}
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("at least one message is required")
	}
	if strings.TrimSpace(req.Model) == "" {
		req.Model = c.model
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode completion request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post completion request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("completion request failed: status %d", resp.StatusCode)
	}

	var decoded completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}
