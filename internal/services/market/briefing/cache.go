package briefing

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Result is one cached briefing.
type Result struct {
	Period       Period    `json:"period"`
	Language     string    `json:"language"`
	Topic        string    `json:"topic"`
	Summary      string    `json:"summary"`
	ArticleCount int       `json:"article_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// CacheKey derives the cache file key for a briefing request. The time
// bucket makes entries expire implicitly: a new bucket is a new key.
func CacheKey(period Period, language, topic string, now time.Time) string {
	raw := fmt.Sprintf("%s:%s:%s:%s", period, language, topic, period.bucket(now))
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:12]
}

// Cache stores briefing results as one JSON file per key.
type Cache struct {
	dir string
}

// NewCache builds a cache rooted at dir.
func NewCache(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached result for key when present and readable.
func (c *Cache) Get(key string) (Result, bool) {
	if c == nil || c.dir == "" {
		return Result{}, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, false
	}
	return result, true
}

// Put stores a result under key, creating the cache dir as needed.
func (c *Cache) Put(key string, result Result) error {
	if c == nil || c.dir == "" {
		return fmt.Errorf("cache dir is not configured")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode briefing: %w", err)
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("write briefing cache: %w", err)
	}
	return nil
}

// Delete removes the cached entry for key; a missing entry is a no-op.
func (c *Cache) Delete(key string) {
	if c == nil || c.dir == "" {
		return
	}
	_ = os.Remove(c.path(key))
}
