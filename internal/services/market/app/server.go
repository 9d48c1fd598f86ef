// Package app assembles and runs the market service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nightdesk/nightdesk/internal/gateway"
	"github.com/nightdesk/nightdesk/internal/llm"
	"github.com/nightdesk/nightdesk/internal/platform/httpx"
	"github.com/nightdesk/nightdesk/internal/platform/observability"
	"github.com/nightdesk/nightdesk/internal/platform/timeouts"
	"github.com/nightdesk/nightdesk/internal/prefs"
	"github.com/nightdesk/nightdesk/internal/services/market/api"
	"github.com/nightdesk/nightdesk/internal/services/market/briefing"
	"github.com/nightdesk/nightdesk/internal/services/market/storage/sqlite"
)

// Config defines the inputs for the market server.
type Config struct {
	Port        int
	DBPath      string
	ArticlesDir string
	SummaryDir  string
	// StaticDir serves a frontend bundle at / when set.
	StaticDir string
	// PrefsDBPath overrides preferences discovery; empty uses the default.
	PrefsDBPath string
	// NotifyRoom enables briefing-ready gateway notifications when set.
	NotifyRoom string

	// LLM overrides the discovered completion client. Tests inject fakes here.
	LLM briefing.LLMClient
}

// Server hosts the market HTTP API.
type Server struct {
	addr       string
	httpServer *http.Server
	store      *sqlite.Store
	handler    http.Handler
}

// NewServer opens the article store and wires the market API.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, errors.New("port is required")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open market store: %w", err)
	}

	llmClient := cfg.LLM
	if llmClient == nil {
		llmClient = llm.NewClient(llm.ClientConfig{})
	}

	var notifier briefing.Notifier
	if cfg.NotifyRoom != "" {
		notifier = gateway.NewClient(gateway.ClientConfig{})
	}

	prefsReader := prefs.NewReader(cfg.PrefsDBPath)
	generator, err := briefing.NewGenerator(briefing.Config{
		Store:       store,
		ArticlesDir: cfg.ArticlesDir,
		Cache:       briefing.NewCache(cfg.SummaryDir),
		LLM:         llmClient,
		Language: func(ctx context.Context) string {
			return prefs.NormalizeLanguage(prefsReader.Load(ctx).Language)
		},
		Notifier:   notifier,
		NotifyRoom: cfg.NotifyRoom,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build briefing generator: %w", err)
	}

	apiHandler, err := api.New(api.Config{
		Articles:    store,
		Tickers:     store,
		Briefings:   generator,
		ArticlesDir: cfg.ArticlesDir,
		StaticDir:   cfg.StaticDir,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build market handler: %w", err)
	}

	handler := httpx.Chain(
		apiHandler,
		httpx.RequestID("market"),
		observability.RequestLogger(nil),
		httpx.RecoverPanic(),
	)
	instrumented := otelhttp.NewHandler(handler, "market")

	addr := fmt.Sprintf(":%d", cfg.Port)
	return &Server{
		addr: addr,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           instrumented,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:   store,
		handler: instrumented,
	}, nil
}

// Handler exposes the routed handler for in-process serving and tests.
func (s *Server) Handler() http.Handler {
	if s == nil {
		return nil
	}
	return s.handler
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation it performs a bounded shutdown so in-flight requests are
// drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("market server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("market listening on %s", s.addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the article store.
func (s *Server) Close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close market store: %v", err)
	}
}
