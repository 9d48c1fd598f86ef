package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nightdesk/nightdesk/internal/services/papers/storage"
)

// GetTranslation returns the cached translation for a paper row and language.
func (s *Store) GetTranslation(ctx context.Context, paperRow int64, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	language = strings.TrimSpace(language)
	if language == "" {
		return "", fmt.Errorf("language is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		"SELECT abstract FROM translations WHERE paper_id = ? AND language = ?",
		paperRow,
		language,
	)
	var abstract string
	if err := row.Scan(&abstract); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("get translation: %w", err)
	}
	return abstract, nil
}

// SaveTranslation stores a translation. A concurrent writer may have filled
// the slot already; the existing entry wins.
func (s *Store) SaveTranslation(ctx context.Context, paperRow int64, language, abstract string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	language = strings.TrimSpace(language)
	if language == "" {
		return fmt.Errorf("language is required")
	}
	if strings.TrimSpace(abstract) == "" {
		return fmt.Errorf("abstract is required")
	}

	if _, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO translations (paper_id, language, abstract)
		 VALUES (?, ?, ?)
		 ON CONFLICT(paper_id, language) DO NOTHING`,
		paperRow,
		language,
		abstract,
	); err != nil {
		return fmt.Errorf("save translation: %w", err)
	}
	return nil
}
