// Package gateway sends outbound notifications through the local chat
// gateway. The gateway relays messages to whichever chat rooms the user has
// connected; delivery is best-effort and callers only log failures.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/nightdesk/nightdesk/internal/platform/timeouts"
)

// defaultURL is used when neither the environment nor the config file
// provide a gateway address.
const defaultURL = "http://localhost:18789"

// urlEnv overrides gateway discovery entirely.
const urlEnv = "NIGHTDESK_GATEWAY_URL"

// Message is one outbound notification.
type Message struct {
	Text    string `json:"message"`
	Room    string `json:"room,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// ClientConfig configures the gateway client.
type ClientConfig struct {
	// BaseURL overrides discovery when set.
	BaseURL string
	// HTTPClient defaults to a client with the shared gateway timeout.
	HTTPClient *http.Client
}

// Client posts notifications to the chat gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ResolveURL discovers the gateway base URL: environment override first, then
// the gateway config file, then the local default.
func ResolveURL() string {
	if url := strings.TrimSpace(os.Getenv(urlEnv)); url != "" {
		return strings.TrimRight(url, "/")
	}
	if cfg, err := LoadConfigFile(ConfigPath()); err == nil {
		host := strings.TrimSpace(cfg.Gateway.Host)
		if host == "" {
			host = "127.0.0.1"
		}
		port := cfg.Gateway.Port
		if port == 0 {
			port = 18789
		}
		return fmt.Sprintf("http://%s:%d", host, port)
	}
	return defaultURL
}

// NewClient builds a gateway client, discovering the base URL when unset.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = ResolveURL()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.Gateway}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SendMessage posts one notification to the gateway message endpoint.
func (c *Client) SendMessage(ctx context.Context, msg Message) error {
	if c == nil {
		return fmt.Errorf("gateway client is nil")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return fmt.Errorf("message text is required")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode gateway message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/message", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post gateway message: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway message rejected: status %d", resp.StatusCode)
	}
	return nil
}
