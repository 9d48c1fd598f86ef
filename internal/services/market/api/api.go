// Package api exposes the market service JSON API.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nightdesk/nightdesk/internal/services/market/briefing"
	"github.com/nightdesk/nightdesk/internal/services/market/storage"
)

// Config wires the market API handler.
type Config struct {
	Articles    storage.ArticleStore
	Tickers     storage.TickerStore
	Briefings   *briefing.Generator
	ArticlesDir string
	// StaticDir, when set, serves a frontend bundle at /.
	StaticDir string
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// New builds the routed market API handler.
func New(cfg Config) (http.Handler, error) {
	if cfg.Articles == nil {
		return nil, fmt.Errorf("article store is required")
	}
	if cfg.Tickers == nil {
		return nil, fmt.Errorf("ticker store is required")
	}
	if cfg.Briefings == nil {
		return nil, fmt.Errorf("briefing generator is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	h := handlers{
		articles:    cfg.Articles,
		tickers:     cfg.Tickers,
		briefings:   cfg.Briefings,
		articlesDir: cfg.ArticlesDir,
		clock:       clock,
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
	mux.HandleFunc(http.MethodGet+" /api/market/stats", h.handleStats)
	mux.HandleFunc(http.MethodGet+" /api/market/headlines", h.handleHeadlines)
	mux.HandleFunc(http.MethodGet+" /api/market/article", h.handleArticle)
	mux.HandleFunc(http.MethodGet+" /api/market/article-counts", h.handleArticleCounts)
	mux.HandleFunc(http.MethodGet+" /api/market/summary/{period}", h.handleSummary)
	mux.HandleFunc(http.MethodGet+" /api/market/tickers", h.handleListTickers)
	mux.HandleFunc(http.MethodPost+" /api/market/tickers", h.handleAddTickers)
	mux.HandleFunc(http.MethodDelete+" /api/market/tickers", h.handleDeleteTickers)
}
