package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func completionHandler(t *testing.T, content string, capture *Request) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func TestCompleteReturnsTrimmedContent(t *testing.T) {
	t.Parallel()

	var got Request
	srv := httptest.NewServer(completionHandler(t, "  Resumo traduzido.\n", &got))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Model: "test-model"})
	out, err := client.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "Translate the following academic abstract to Portuguese."},
			{Role: RoleUser, Content: "We study..."},
		},
		MaxTokens:   2000,
		Temperature: 0.1,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "Resumo traduzido." {
		t.Fatalf("content = %q", out)
	}
	if got.Model != "test-model" {
		t.Fatalf("model = %q, want client default", got.Model)
	}
	if got.MaxTokens != 2000 {
		t.Fatalf("max_tokens = %d", got.MaxTokens)
	}
}

func TestCompleteRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Model: "test-model"})
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}}); err == nil {
		t.Fatal("expected error on 503 response")
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{BaseURL: srv.URL, Model: "test-model"})
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}}); err == nil {
		t.Fatal("expected empty choices error")
	}
}

func TestCompleteRequiresMessages(t *testing.T) {
	t.Parallel()

	client := NewClient(ClientConfig{BaseURL: "http://localhost:0", Model: "m"})
	if _, err := client.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected missing messages error")
	}
}

func TestDiscoverPrefersEnvOverrides(t *testing.T) {
	ResetDiscovery()
	t.Cleanup(ResetDiscovery)
	t.Setenv("NIGHTDESK_GATEWAY_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("NIGHTDESK_LLM_ENDPOINT", "http://proxy.local:4000/")
	t.Setenv("NIGHTDESK_LLM_MODEL", "env-model")

	got := Discover()
	if got.BaseURL != "http://proxy.local:4000" {
		t.Fatalf("base url = %q", got.BaseURL)
	}
	if got.Model != "env-model" {
		t.Fatalf("model = %q", got.Model)
	}
}

func TestDiscoverReadsGatewayConfigAndPrefersSonnet(t *testing.T) {
	ResetDiscovery()
	t.Cleanup(ResetDiscovery)
	t.Setenv("NIGHTDESK_LLM_ENDPOINT", "")
	t.Setenv("NIGHTDESK_LLM_MODEL", "")

	path := filepath.Join(t.TempDir(), "gateway.json")
	content := `{
		"models": {
			"providers": {
				"local": {
					"baseUrl": "http://127.0.0.1:4000",
					"models": [{"id": "big-opus-model"}, {"id": "fast-sonnet-model"}, {"id": "tiny-model"}]
				}
			}
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NIGHTDESK_GATEWAY_CONFIG", path)

	got := Discover()
	if got.BaseURL != "http://127.0.0.1:4000" {
		t.Fatalf("base url = %q", got.BaseURL)
	}
	if got.Model != "fast-sonnet-model" {
		t.Fatalf("model = %q, want sonnet preference", got.Model)
	}
}

func TestDiscoverFallsBackToDefaults(t *testing.T) {
	ResetDiscovery()
	t.Cleanup(ResetDiscovery)
	t.Setenv("NIGHTDESK_GATEWAY_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("NIGHTDESK_LLM_ENDPOINT", "")
	t.Setenv("NIGHTDESK_LLM_MODEL", "")

	got := Discover()
	if got.BaseURL != "http://localhost:4000" {
		t.Fatalf("base url = %q", got.BaseURL)
	}
	if got.Model == "" {
		t.Fatal("expected non-empty default model")
	}
}
