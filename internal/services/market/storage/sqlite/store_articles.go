package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nightdesk/nightdesk/internal/services/market/storage"
)

const articleColumns = "id, title, url, ticker, status, publish_at, article_path, created_at"

func scanArticle(scan func(...any) error) (storage.Article, error) {
	var article storage.Article
	var ticker sql.NullString
	var articlePath sql.NullString
	var publishAt int64
	var createdAt int64
	if err := scan(
		&article.ID,
		&article.Title,
		&article.URL,
		&ticker,
		&article.Status,
		&publishAt,
		&articlePath,
		&createdAt,
	); err != nil {
		return storage.Article{}, err
	}
	article.Ticker = ticker.String
	article.ArticlePath = articlePath.String
	article.PublishAt = fromMillis(publishAt)
	article.CreatedAt = fromMillis(createdAt)
	return article, nil
}

// InsertArticle stores one crawled article. It exists for the crawler and
// for tests; the API surface only reads.
func (s *Store) InsertArticle(ctx context.Context, article storage.Article) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	title := strings.TrimSpace(article.Title)
	url := strings.TrimSpace(article.URL)
	if title == "" {
		return 0, fmt.Errorf("title is required")
	}
	if url == "" {
		return 0, fmt.Errorf("url is required")
	}
	createdAt := article.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO articles (title, url, ticker, status, publish_at, article_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		title,
		url,
		nullableString(article.Ticker),
		article.Status,
		toMillis(article.PublishAt),
		nullableString(article.ArticlePath),
		toMillis(createdAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert article id: %w", err)
	}
	return id, nil
}

// ArticleStats returns corpus-wide article counters.
func (s *Store) ArticleStats(ctx context.Context) (storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return storage.Stats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Stats{}, fmt.Errorf("storage is not configured")
	}

	var stats storage.Stats
	row := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles")
	if err := row.Scan(&stats.Total); err != nil {
		return storage.Stats{}, fmt.Errorf("count articles: %w", err)
	}
	row = s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles WHERE article_path IS NOT NULL")
	if err := row.Scan(&stats.WithContent); err != nil {
		return storage.Stats{}, fmt.Errorf("count articles with content: %w", err)
	}
	cutoff := toMillis(time.Now().UTC().Add(-24 * time.Hour))
	row = s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles WHERE publish_at >= ?", cutoff)
	if err := row.Scan(&stats.Last24h); err != nil {
		return storage.Stats{}, fmt.Errorf("count recent articles: %w", err)
	}
	return stats, nil
}

// ListHeadlines returns articles published at or after since, newest first.
func (s *Store) ListHeadlines(ctx context.Context, since time.Time, limit int) ([]storage.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+articleColumns+`
		   FROM articles
		  WHERE publish_at >= ?
		  ORDER BY publish_at DESC
		  LIMIT ?`,
		toMillis(since),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list headlines: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows, "list headlines")
}

// GetArticleByURL returns one article by its URL.
func (s *Store) GetArticleByURL(ctx context.Context, url string) (storage.Article, error) {
	if err := ctx.Err(); err != nil {
		return storage.Article{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Article{}, fmt.Errorf("storage is not configured")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return storage.Article{}, fmt.Errorf("url is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+articleColumns+` FROM articles WHERE url = ?`,
		url,
	)
	article, err := scanArticle(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Article{}, storage.ErrNotFound
		}
		return storage.Article{}, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// CountArticlesByTopic returns done-article counts keyed by ticker, with
// TopicMarket counting unassigned articles. A zero since means all time.
func (s *Store) CountArticlesByTopic(ctx context.Context, since time.Time) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	window := ""
	args := []any{}
	if !since.IsZero() {
		window = " AND publish_at >= ?"
		args = append(args, toMillis(since))
	}

	counts := make(map[string]int64)
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM articles
		  WHERE (ticker IS NULL OR ticker = '') AND status = ?`+window,
		append([]any{storage.StatusDone}, args...)...,
	)
	var marketCount int64
	if err := row.Scan(&marketCount); err != nil {
		return nil, fmt.Errorf("count market articles: %w", err)
	}
	counts[storage.TopicMarket] = marketCount

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT ticker, COUNT(*) FROM articles
		  WHERE ticker IS NOT NULL AND ticker != '' AND status = ?`+window+`
		  GROUP BY ticker
		  ORDER BY ticker`,
		append([]any{storage.StatusDone}, args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("count ticker articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker string
		var count int64
		if err := rows.Scan(&ticker, &count); err != nil {
			return nil, fmt.Errorf("count ticker articles: %w", err)
		}
		counts[ticker] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count ticker articles: %w", err)
	}
	return counts, nil
}

// ListArticlesForTopic returns done articles in the window for the topic,
// newest first. TopicMarket selects articles without a ticker.
func (s *Store) ListArticlesForTopic(ctx context.Context, since time.Time, topic string, limit int) ([]storage.Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = storage.TopicMarket
	}

	var (
		rows *sql.Rows
		err  error
	)
	if topic == storage.TopicMarket {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT `+articleColumns+`
			   FROM articles
			  WHERE publish_at >= ? AND (ticker IS NULL OR ticker = '') AND status = ?
			  ORDER BY publish_at DESC
			  LIMIT ?`,
			toMillis(since),
			storage.StatusDone,
			limit,
		)
	} else {
		rows, err = s.sqlDB.QueryContext(
			ctx,
			`SELECT `+articleColumns+`
			   FROM articles
			  WHERE publish_at >= ? AND ticker = ? AND status = ?
			  ORDER BY publish_at DESC
			  LIMIT ?`,
			toMillis(since),
			topic,
			storage.StatusDone,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list topic articles: %w", err)
	}
	defer rows.Close()

	return collectArticles(rows, "list topic articles")
}

func collectArticles(rows *sql.Rows, op string) ([]storage.Article, error) {
	var articles []storage.Article
	for rows.Next() {
		article, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return articles, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
