package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nightdesk/nightdesk/internal/services/papers/storage"
)

const paperColumns = "id, paper_id, title, abstract, published, created_at"

func scanPaper(scan func(...any) error) (storage.Paper, error) {
	var paper storage.Paper
	var abstract sql.NullString
	var published sql.NullString
	var createdAt int64
	if err := scan(
		&paper.ID,
		&paper.PaperID,
		&paper.Title,
		&abstract,
		&published,
		&createdAt,
	); err != nil {
		return storage.Paper{}, err
	}
	paper.Abstract = abstract.String
	paper.Published = published.String
	paper.CreatedAt = fromMillis(createdAt)
	return paper, nil
}

// InsertPaper stores one ingested paper. It exists for the crawler and for
// tests; the API surface only reads.
func (s *Store) InsertPaper(ctx context.Context, paper storage.Paper) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	paperID := strings.TrimSpace(paper.PaperID)
	title := strings.TrimSpace(paper.Title)
	if paperID == "" {
		return 0, fmt.Errorf("paper id is required")
	}
	if title == "" {
		return 0, fmt.Errorf("title is required")
	}
	createdAt := paper.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO papers (paper_id, title, abstract, published, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		paperID,
		title,
		nullableString(paper.Abstract),
		nullableString(paper.Published),
		toMillis(createdAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert paper: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert paper id: %w", err)
	}
	return id, nil
}

// InsertChunk stores one content chunk for a paper row.
func (s *Store) InsertChunk(ctx context.Context, paperRow int64, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		"INSERT INTO chunks (paper_id, content) VALUES (?, ?)",
		paperRow,
		content,
	); err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}
	return nil
}

// UpsertCategory inserts or replaces one category.
func (s *Store) UpsertCategory(ctx context.Context, category storage.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	code := strings.TrimSpace(category.Code)
	if code == "" {
		return fmt.Errorf("category code is required")
	}
	enabled := 0
	if category.Enabled {
		enabled = 1
	}
	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO categories (code, description, group_name, enabled)
		 VALUES (?, ?, ?, ?)`,
		code,
		category.Description,
		category.Group,
		enabled,
	); err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

// PaperStats returns corpus-wide counters and the latest ingest batch.
func (s *Store) PaperStats(ctx context.Context) (storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return storage.Stats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Stats{}, fmt.Errorf("storage is not configured")
	}

	var stats storage.Stats
	row := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM papers")
	if err := row.Scan(&stats.Papers); err != nil {
		return storage.Stats{}, fmt.Errorf("count papers: %w", err)
	}
	row = s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks")
	if err := row.Scan(&stats.Chunks); err != nil {
		return storage.Stats{}, fmt.Errorf("count chunks: %w", err)
	}
	row = s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories WHERE enabled = 1")
	if err := row.Scan(&stats.Categories); err != nil {
		return storage.Stats{}, fmt.Errorf("count categories: %w", err)
	}

	row = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT DATE(created_at / 1000, 'unixepoch') AS day, COUNT(*)
		   FROM papers
		  GROUP BY day
		  ORDER BY day DESC
		  LIMIT 1`,
	)
	var lastCrawl string
	var lastCount int64
	if err := row.Scan(&lastCrawl, &lastCount); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return storage.Stats{}, fmt.Errorf("last crawl batch: %w", err)
		}
	} else {
		stats.LastCrawl = lastCrawl
		stats.LastCrawlCount = lastCount
	}
	return stats, nil
}

// ListCategories returns all categories ordered by group then code.
func (s *Store) ListCategories(ctx context.Context) ([]storage.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT code, description, group_name, enabled
		   FROM categories
		  ORDER BY group_name, code`,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []storage.Category
	for rows.Next() {
		var category storage.Category
		var description sql.NullString
		var group sql.NullString
		var enabled int
		if err := rows.Scan(&category.Code, &description, &group, &enabled); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		category.Description = description.String
		category.Group = group.String
		category.Enabled = enabled != 0
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// GetPaper returns one paper by its public id.
func (s *Store) GetPaper(ctx context.Context, paperID string) (storage.Paper, error) {
	if err := ctx.Err(); err != nil {
		return storage.Paper{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Paper{}, fmt.Errorf("storage is not configured")
	}
	paperID = strings.TrimSpace(paperID)
	if paperID == "" {
		return storage.Paper{}, fmt.Errorf("paper id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+paperColumns+` FROM papers WHERE paper_id = ?`,
		paperID,
	)
	paper, err := scanPaper(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Paper{}, storage.ErrNotFound
		}
		return storage.Paper{}, fmt.Errorf("get paper: %w", err)
	}
	return paper, nil
}

// SearchPapers matches query against title and abstract, newest publication
// first.
func (s *Store) SearchPapers(ctx context.Context, query string, limit int) ([]storage.Paper, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	pattern := "%" + query + "%"
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+paperColumns+`
		   FROM papers
		  WHERE title LIKE ? OR abstract LIKE ?
		  ORDER BY published DESC
		  LIMIT ?`,
		pattern,
		pattern,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}
	defer rows.Close()

	var papers []storage.Paper
	for rows.Next() {
		paper, err := scanPaper(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("search papers: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}
	return papers, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
