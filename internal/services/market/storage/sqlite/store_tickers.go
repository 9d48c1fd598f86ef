package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nightdesk/nightdesk/internal/services/market/storage"
)

// ListTickers returns all tracked tickers ordered by symbol.
func (s *Store) ListTickers(ctx context.Context) ([]storage.Ticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		"SELECT symbol, keywords, added_at FROM tickers ORDER BY symbol ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []storage.Ticker
	for rows.Next() {
		var ticker storage.Ticker
		var keywords string
		var addedAt int64
		if err := rows.Scan(&ticker.Symbol, &keywords, &addedAt); err != nil {
			return nil, fmt.Errorf("list tickers: %w", err)
		}
		if err := json.Unmarshal([]byte(keywords), &ticker.Keywords); err != nil {
			return nil, fmt.Errorf("decode ticker keywords for %s: %w", ticker.Symbol, err)
		}
		ticker.AddedAt = fromMillis(addedAt)
		tickers = append(tickers, ticker)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	return tickers, nil
}

// UpsertTicker inserts or replaces one ticker record.
func (s *Store) UpsertTicker(ctx context.Context, ticker storage.Ticker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	symbol := strings.ToUpper(strings.TrimSpace(ticker.Symbol))
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	keywords := ticker.Keywords
	if len(keywords) == 0 {
		keywords = []string{strings.ToLower(symbol)}
	}
	encoded, err := json.Marshal(keywords)
	if err != nil {
		return fmt.Errorf("encode ticker keywords: %w", err)
	}
	addedAt := ticker.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		"INSERT OR REPLACE INTO tickers (symbol, keywords, added_at) VALUES (?, ?, ?)",
		symbol,
		string(encoded),
		toMillis(addedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert ticker: %w", err)
	}
	return nil
}

// DeleteTicker removes one ticker; unknown symbols are a no-op.
func (s *Store) DeleteTicker(ctx context.Context, symbol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("symbol is required")
	}

	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM tickers WHERE symbol = ?", symbol); err != nil {
		return fmt.Errorf("delete ticker: %w", err)
	}
	return nil
}
