// Package storage defines the papers service storage contracts.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Paper is one ingested research paper. Published keeps the crawler's date
// string (YYYY-MM-DD), which sorts correctly as text.
type Paper struct {
	ID        int64
	PaperID   string
	Title     string
	Abstract  string
	Published string
	CreatedAt time.Time
}

// Category is one subject category with its enabled flag.
type Category struct {
	Code        string
	Description string
	Group       string
	Enabled     bool
}

// Stats summarizes the paper corpus.
type Stats struct {
	Papers     int64
	Chunks     int64
	Categories int64
	// LastCrawl is the most recent ingest date (YYYY-MM-DD), empty when the
	// corpus is empty.
	LastCrawl      string
	LastCrawlCount int64
}

// PaperStore reads the ingested paper corpus.
type PaperStore interface {
	// PaperStats returns corpus-wide counters and the latest ingest batch.
	PaperStats(ctx context.Context) (Stats, error)
	// ListCategories returns all categories ordered by group then code.
	ListCategories(ctx context.Context) ([]Category, error)
	// GetPaper returns one paper by its public id, ErrNotFound when absent.
	GetPaper(ctx context.Context, paperID string) (Paper, error)
	// SearchPapers matches query against title and abstract, newest
	// publication first, up to limit rows.
	SearchPapers(ctx context.Context, query string, limit int) ([]Paper, error)
}

// TranslationStore caches translated abstracts per paper and language.
type TranslationStore interface {
	// GetTranslation returns the cached translation, ErrNotFound when absent.
	GetTranslation(ctx context.Context, paperRow int64, language string) (string, error)
	// SaveTranslation stores a translation; an existing entry for the same
	// paper and language is kept.
	SaveTranslation(ctx context.Context, paperRow int64, language, abstract string) error
}
