// Package storage defines the market service storage contracts.
package storage

import (
	"context"
	"errors"
	"time"
)

// TopicMarket is the pseudo-topic for general headlines: articles the
// crawler filed without a ticker.
const TopicMarket = "Market"

// StatusDone marks articles whose full text has been fetched.
const StatusDone = "done"

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("not found")

// Article is one crawled news article.
type Article struct {
	ID          int64
	Title       string
	URL         string
	Ticker      string
	Status      string
	PublishAt   time.Time
	ArticlePath string
	CreatedAt   time.Time
}

// HasContent reports whether the crawler stored full article text.
func (a Article) HasContent() bool {
	return a.ArticlePath != ""
}

// Stats summarizes the article corpus.
type Stats struct {
	Total       int64
	WithContent int64
	Last24h     int64
}

// Ticker is one tracked stock symbol with its match keywords.
type Ticker struct {
	Symbol   string
	Keywords []string
	AddedAt  time.Time
}

// ArticleStore reads the crawled article corpus.
type ArticleStore interface {
	// ArticleStats returns corpus-wide counters.
	ArticleStats(ctx context.Context) (Stats, error)
	// ListHeadlines returns articles published at or after since, newest
	// first, up to limit rows.
	ListHeadlines(ctx context.Context, since time.Time, limit int) ([]Article, error)
	// GetArticleByURL returns one article, ErrNotFound when absent.
	GetArticleByURL(ctx context.Context, url string) (Article, error)
	// CountArticlesByTopic returns done-article counts keyed by ticker, with
	// TopicMarket counting unassigned articles. A zero since means all time.
	CountArticlesByTopic(ctx context.Context, since time.Time) (map[string]int64, error)
	// ListArticlesForTopic returns done articles in the window for the
	// topic (TopicMarket selects articles without a ticker), newest first.
	ListArticlesForTopic(ctx context.Context, since time.Time, topic string, limit int) ([]Article, error)
}

// TickerStore manages the tracked ticker list.
type TickerStore interface {
	// ListTickers returns all tracked tickers ordered by symbol.
	ListTickers(ctx context.Context) ([]Ticker, error)
	// UpsertTicker inserts or replaces one ticker.
	UpsertTicker(ctx context.Context, ticker Ticker) error
	// DeleteTicker removes one ticker; deleting an unknown symbol is not an
	// error.
	DeleteTicker(ctx context.Context, symbol string) error
}
