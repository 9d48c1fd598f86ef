package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nightdesk/nightdesk/internal/platform/apperrors"
	"github.com/nightdesk/nightdesk/internal/platform/httpx"
	"github.com/nightdesk/nightdesk/internal/services/market/briefing"
	"github.com/nightdesk/nightdesk/internal/services/market/storage"
)

const (
	defaultHeadlineHours = 24
	maxHeadlineHours     = 720
	defaultHeadlineLimit = 100
	maxHeadlineLimit     = 500
	maxCountHours        = 8760
)

type handlers struct {
	articles    storage.ArticleStore
	tickers     storage.TickerStore
	briefings   *briefing.Generator
	articlesDir string
	clock       func() time.Time
}

func (h handlers) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.articles.ArticleStats(r.Context())
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total":        stats.Total,
		"with_content": stats.WithContent,
		"last_24h":     stats.Last24h,
	})
}

func (h handlers) handleHeadlines(w http.ResponseWriter, r *http.Request) {
	hours, ok := queryInt(r, "hours", defaultHeadlineHours, 1, maxHeadlineHours)
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "hours must be between 1 and 720")
		return
	}
	limit, ok := queryInt(r, "limit", defaultHeadlineLimit, 1, maxHeadlineLimit)
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "limit must be between 1 and 500")
		return
	}

	since := h.clock().UTC().Add(-time.Duration(hours) * time.Hour)
	articles, err := h.articles.ListHeadlines(r.Context(), since, limit)
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to load headlines")
		return
	}

	headlines := make([]map[string]any, 0, len(articles))
	for _, article := range articles {
		headlines = append(headlines, map[string]any{
			"title":       article.Title,
			"url":         article.URL,
			"date":        article.PublishAt.UTC().Format(time.RFC3339),
			"has_content": article.HasContent(),
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"count":     len(headlines),
		"headlines": headlines,
	})
}

func (h handlers) handleArticle(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	article, err := h.articles.GetArticleByURL(r.Context(), url)
	if errors.Is(err, storage.ErrNotFound) {
		_ = httpx.WriteJSONError(w, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to load article")
		return
	}

	var content *string
	if h.articlesDir != "" && article.ArticlePath != "" {
		data, readErr := os.ReadFile(filepath.Join(h.articlesDir, filepath.Clean(article.ArticlePath)))
		if readErr == nil {
			text := string(data)
			content = &text
		}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"title":   article.Title,
		"url":     article.URL,
		"date":    article.PublishAt.UTC().Format(time.RFC3339),
		"content": content,
	})
}

func (h handlers) handleArticleCounts(w http.ResponseWriter, r *http.Request) {
	hours, ok := queryInt(r, "hours", 0, 0, maxCountHours)
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "hours must be between 0 and 8760")
		return
	}

	// hours=0 counts all time.
	var since time.Time
	if hours > 0 {
		since = h.clock().UTC().Add(-time.Duration(hours) * time.Hour)
	}
	counts, err := h.articles.CountArticlesByTopic(r.Context(), since)
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to count articles")
		return
	}
	if counts == nil {
		counts = map[string]int64{}
	}
	_ = httpx.WriteJSON(w, http.StatusOK, counts)
}

func (h handlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	period, err := briefing.ParsePeriod(strings.TrimSpace(r.PathValue("period")))
	if err != nil {
		_ = httpx.WriteJSONError(w, apperrors.HTTPStatus(err), err.Error())
		return
	}
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	regenerate := queryFlag(r, "regenerate")

	resp := h.briefings.Get(r.Context(), period, topic, regenerate)
	_ = httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h handlers) handleListTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.tickers.ListTickers(r.Context())
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to load tickers")
		return
	}
	items := make([]map[string]any, 0, len(tickers))
	for _, ticker := range tickers {
		items = append(items, map[string]any{
			"symbol":   ticker.Symbol,
			"keywords": ticker.Keywords,
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h handlers) handleAddTickers(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Tickers []struct {
			Symbol   string   `json:"symbol"`
			Keywords []string `json:"keywords"`
		} `json:"tickers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(payload.Tickers) == 0 {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "tickers list is required")
		return
	}

	added := []string{}
	for _, item := range payload.Tickers {
		symbol := strings.ToUpper(strings.TrimSpace(item.Symbol))
		// The Market pseudo-topic is reserved for untagged articles.
		if symbol == "" || symbol == strings.ToUpper(storage.TopicMarket) {
			continue
		}
		ticker := storage.Ticker{
			Symbol:   symbol,
			Keywords: item.Keywords,
			AddedAt:  h.clock().UTC(),
		}
		if err := h.tickers.UpsertTicker(r.Context(), ticker); err != nil {
			_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to save tickers")
			return
		}
		added = append(added, symbol)
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "added": added})
}

func (h handlers) handleDeleteTickers(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("symbols"))
	if raw == "" {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}

	removed := []string{}
	for _, part := range strings.Split(raw, ",") {
		symbol := strings.ToUpper(strings.TrimSpace(part))
		if symbol == "" {
			continue
		}
		if err := h.tickers.DeleteTicker(r.Context(), symbol); err != nil {
			_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to delete tickers")
			return
		}
		removed = append(removed, symbol)
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": removed})
}

// queryInt parses an integer query parameter with a default and inclusive
// bounds. A missing parameter yields the default; a malformed or out-of-range
// value fails.
func queryInt(r *http.Request, name string, def, min, max int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < min || value > max {
		return 0, false
	}
	return value, true
}

func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
