package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nightdesk/nightdesk/internal/platform/httpx"
	"github.com/nightdesk/nightdesk/internal/services/papers/storage"
	"github.com/nightdesk/nightdesk/internal/services/papers/translate"
)

const (
	minQueryLength = 2
	defaultTopK    = 10
	maxTopK        = 50
)

type handlers struct {
	papers     storage.PaperStore
	translator *translate.Translator
	pdfDir     string
}

func (h handlers) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.papers.PaperStats(r.Context())
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	var lastCrawl any
	if stats.LastCrawl != "" {
		lastCrawl = stats.LastCrawl
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"papers":           stats.Papers,
		"chunks":           stats.Chunks,
		"categories":       stats.Categories,
		"last_crawl":       lastCrawl,
		"last_crawl_count": stats.LastCrawlCount,
	})
}

func (h handlers) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.papers.ListCategories(r.Context())
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}
	items := make([]map[string]any, 0, len(categories))
	for _, category := range categories {
		items = append(items, map[string]any{
			"code":        category.Code,
			"description": category.Description,
			"group":       category.Group,
			"enabled":     category.Enabled,
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"categories": items})
}

func (h handlers) handlePaper(w http.ResponseWriter, r *http.Request) {
	paperID, ok := pathPaperID(r)
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "invalid paper id")
		return
	}
	paper, err := h.papers.GetPaper(r.Context(), paperID)
	if errors.Is(err, storage.ErrNotFound) {
		_ = httpx.WriteJSONError(w, http.StatusNotFound, "paper not found")
		return
	}
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to load paper")
		return
	}

	// Translation comes from the cache only; the detail page never blocks on
	// the LLM.
	cached := h.translator.Cached(r.Context(), paper)
	var translated any
	if cached.Translated != "" {
		translated = cached.Translated
	}
	var language any
	if cached.Language != "" {
		language = cached.Language
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"paper_id":            paper.PaperID,
		"title":               paper.Title,
		"abstract":            paper.Abstract,
		"abstract_translated": translated,
		"translate_language":  language,
		"published":           paper.Published,
		"has_pdf":             h.hasPDF(paper.PaperID),
	})
}

func (h handlers) handleTranslate(w http.ResponseWriter, r *http.Request) {
	paperID, ok := pathPaperID(r)
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "invalid paper id")
		return
	}
	paper, err := h.papers.GetPaper(r.Context(), paperID)
	if errors.Is(err, storage.ErrNotFound) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"translated": nil})
		return
	}
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "failed to load paper")
		return
	}

	// No preference, empty abstract, and LLM failures all collapse to a bare
	// null so clients need only check one key.
	result := h.translator.Translate(r.Context(), paper)
	if result.Translated == "" {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"translated": nil})
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"translated": result.Translated,
		"language":   result.Language,
	})
}

func (h handlers) handlePDF(w http.ResponseWriter, r *http.Request) {
	paperID, ok := pathPaperID(r)
	if !ok {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "invalid paper id")
		return
	}
	path := h.pdfPath(paperID)
	if path == "" {
		_ = httpx.WriteJSONError(w, http.StatusNotFound, "PDF not found")
		return
	}
	if _, err := os.Stat(path); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusNotFound, "PDF not found")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s.pdf", paperID))
	http.ServeFile(w, r, path)
}

func (h handlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < minQueryLength {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "q must be at least 2 characters")
		return
	}
	topK := defaultTopK
	if raw := strings.TrimSpace(r.URL.Query().Get("top_k")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 || value > maxTopK {
			_ = httpx.WriteJSONError(w, http.StatusBadRequest, "top_k must be between 1 and 50")
			return
		}
		topK = value
	}

	papers, err := h.papers.SearchPapers(r.Context(), query, topK)
	if err != nil {
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, "search failed")
		return
	}
	results := make([]map[string]any, 0, len(papers))
	for _, paper := range papers {
		results = append(results, map[string]any{
			"paper_id":  paper.PaperID,
			"title":     paper.Title,
			"published": paper.Published,
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"method":  "text",
		"results": results,
	})
}

// hasPDF reports whether the PDF for a paper exists on disk.
func (h handlers) hasPDF(paperID string) bool {
	path := h.pdfPath(paperID)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// pdfPath derives the PDF location from the paper id; ids that would escape
// the PDF directory yield "".
func (h handlers) pdfPath(paperID string) string {
	if h.pdfDir == "" || paperID == "" {
		return ""
	}
	name := paperID + ".pdf"
	if filepath.Base(name) != name || strings.Contains(paperID, "..") {
		return ""
	}
	return filepath.Join(h.pdfDir, name)
}

// pathPaperID extracts and sanity-checks the paper id path segment.
func pathPaperID(r *http.Request) (string, bool) {
	paperID := strings.TrimSpace(r.PathValue("paperID"))
	if paperID == "" || strings.Contains(paperID, "..") || strings.ContainsAny(paperID, `/\`) {
		return "", false
	}
	return paperID, true
}
