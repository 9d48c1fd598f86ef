package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/nightdesk/nightdesk/internal/llm"
)

type staticLLM struct{}

func (staticLLM) Complete(context.Context, llm.Request) (string, error) {
	return "summary", nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	server, err := NewServer(Config{
		Port:        38802,
		DBPath:      filepath.Join(dir, "market.db"),
		ArticlesDir: filepath.Join(dir, "articles"),
		SummaryDir:  filepath.Join(dir, "summaries"),
		PrefsDBPath: filepath.Join(dir, "missing-prefs.db"),
		LLM:         staticLLM{},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(server.Close)
	return server
}

func TestNewServerValidatesConfig(t *testing.T) {
	if _, err := NewServer(Config{DBPath: "x.db"}); err == nil {
		t.Fatal("expected missing port error")
	}
	if _, err := NewServer(Config{Port: 8802}); err == nil {
		t.Fatal("expected missing db path error")
	}
}

func TestServerServesHealthz(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestServerServesStatsFromEmptyStore(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/stats", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	server := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe(ctx)
	}()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("listen and serve: %v", err)
	}
}
