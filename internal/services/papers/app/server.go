// Package app assembles and runs the papers service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/nightdesk/nightdesk/internal/llm"
	"github.com/nightdesk/nightdesk/internal/platform/httpx"
	"github.com/nightdesk/nightdesk/internal/platform/observability"
	"github.com/nightdesk/nightdesk/internal/platform/timeouts"
	"github.com/nightdesk/nightdesk/internal/prefs"
	"github.com/nightdesk/nightdesk/internal/services/papers/api"
	"github.com/nightdesk/nightdesk/internal/services/papers/storage/sqlite"
	"github.com/nightdesk/nightdesk/internal/services/papers/translate"
)

// Config defines the inputs for the papers server.
type Config struct {
	Port   int
	DBPath string
	PDFDir string
	// StaticDir serves a frontend bundle at / when set.
	StaticDir string
	// PrefsDBPath overrides preferences discovery; empty uses the default.
	PrefsDBPath string

	// LLM overrides the discovered completion client. Tests inject fakes here.
	LLM translate.LLMClient
}

// Server hosts the papers HTTP API.
type Server struct {
	addr       string
	httpServer *http.Server
	store      *sqlite.Store
	handler    http.Handler
}

// NewServer opens the paper store and wires the papers API.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, errors.New("port is required")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open papers store: %w", err)
	}

	llmClient := cfg.LLM
	if llmClient == nil {
		llmClient = llm.NewClient(llm.ClientConfig{})
	}

	prefsReader := prefs.NewReader(cfg.PrefsDBPath)
	translator, err := translate.New(translate.Config{
		Store: store,
		LLM:   llmClient,
		Language: func(ctx context.Context) string {
			return prefs.NormalizeLanguage(prefsReader.TranslateLanguage(ctx))
		},
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build translator: %w", err)
	}

	apiHandler, err := api.New(api.Config{
		Papers:     store,
		Translator: translator,
		PDFDir:     cfg.PDFDir,
		StaticDir:  cfg.StaticDir,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("build papers handler: %w", err)
	}

	handler := httpx.Chain(
		apiHandler,
		httpx.RequestID("papers"),
		observability.RequestLogger(nil),
		httpx.RecoverPanic(),
	)
	instrumented := otelhttp.NewHandler(handler, "papers")

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
		return errors.New("papers server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("papers listening on %s", s.addr)
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

// Close releases the paper store.
func (s *Server) Close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close papers store: %v", err)
	}
}
