// Package api exposes the papers service JSON API.
package api

import (
	"fmt"
	"net/http"

	"github.com/nightdesk/nightdesk/internal/services/papers/storage"
	"github.com/nightdesk/nightdesk/internal/services/papers/translate"
)

// Config wires the papers API handler.
type Config struct {
	Papers     storage.PaperStore
	Translator *translate.Translator
	PDFDir     string
	// StaticDir, when set, serves a frontend bundle at /.
	StaticDir string
}

// New builds the routed papers API handler.
func New(cfg Config) (http.Handler, error) {
	if cfg.Papers == nil {
		return nil, fmt.Errorf("paper store is required")
	}
	if cfg.Translator == nil {
		return nil, fmt.Errorf("translator is required")
	}
	h := handlers{
		papers:     cfg.Papers,
		translator: cfg.Translator,
		pdfDir:     cfg.PDFDir,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, h)
	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}
	return mux, nil
}

func registerRoutes(mux *http.ServeMux, h handlers) {
	if mux == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" /healthz", h.handleHealthz)
	mux.HandleFunc(http.MethodGet+" /api/papers/stats", h.handleStats)
	mux.HandleFunc(http.MethodGet+" /api/papers/categories", h.handleCategories)
	mux.HandleFunc(http.MethodGet+" /api/papers/paper/{paperID}", h.handlePaper)
	mux.HandleFunc(http.MethodGet+" /api/papers/paper/{paperID}/translate", h.handleTranslate)
	mux.HandleFunc(http.MethodGet+" /api/papers/pdf/{paperID}", h.handlePDF)
	mux.HandleFunc(http.MethodGet+" /api/papers/search", h.handleSearch)
}
