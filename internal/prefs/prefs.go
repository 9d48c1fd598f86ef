// Package prefs reads the shared nightdesk preferences database. The
// preferences DB is owned by the desktop shell; services read it and fall
// back to defaults when it does not exist yet.
package prefs

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/nightdesk/nightdesk/internal/platform/config"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	_ "modernc.org/sqlite"
)

const (
	pathEnv     = "NIGHTDESK_PREFS_DB_PATH"
	defaultPath = "~/.local/share/nightdesk/nightdesk.db"

	// DefaultTimezone applies when the preferences DB has no timezone key.
	DefaultTimezone = "America/Los_Angeles"
	// DefaultLanguage applies when the preferences DB has no language key.
	DefaultLanguage = "English"
)

// Preferences holds the shared user preferences the services consume.
type Preferences struct {
	Timezone string
	Language string
}

// DBPath returns the preferences database location, honoring the
// NIGHTDESK_PREFS_DB_PATH override.
func DBPath() string {
	if path := strings.TrimSpace(os.Getenv(pathEnv)); path != "" {
		return config.ExpandHome(path)
	}
	return config.ExpandHome(defaultPath)
}

// Reader loads preferences from a SQLite key/value table.
type Reader struct {
	path string
}

// NewReader builds a reader for the given DB path, or the discovered default
// when path is empty.
func NewReader(path string) *Reader {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DBPath()
	}
	return &Reader{path: path}
}

// Load returns the stored preferences, substituting defaults for anything
// missing. A missing database is not an error.
func (r *Reader) Load(ctx context.Context) Preferences {
	defaults := Preferences{Timezone: DefaultTimezone, Language: DefaultLanguage}
	if r == nil {
		return defaults
	}
	values, err := r.readAll(ctx)
	if err != nil {
		return defaults
	}
	result := defaults
	if tz := strings.TrimSpace(values["timezone"]); tz != "" {
		result.Timezone = tz
	}
	if lang := strings.TrimSpace(values["language"]); lang != "" {
		result.Language = lang
	}
	return result
}

// TranslateLanguage returns the configured translation language, or "" when
// translation is not configured. Unlike Load, no default is substituted: an
// unset language means "do not translate".
func (r *Reader) TranslateLanguage(ctx context.Context) string {
	if r == nil {
		return ""
	}
	values, err := r.readAll(ctx)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(values["language"])
}

func (r *Reader) readAll(ctx context.Context) (map[string]string, error) {
	if _, err := os.Stat(r.path); err != nil {
		return nil, fmt.Errorf("stat preferences db: %w", err)
	}
	sqlDB, err := sql.Open("sqlite", r.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open preferences db: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	rows, err := sqlDB.QueryContext(ctx, "SELECT key, value FROM preferences")
	if err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read preferences: %w", err)
	}
	return values, nil
}

// NormalizeLanguage canonicalizes a language preference for prompt use. A
// BCP-47 tag ("pt-BR") becomes its English display name ("Brazilian
// Portuguese"); display names and anything unrecognized are returned as typed.
func NormalizeLanguage(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !looksLikeTag(value) {
		return value
	}
	tag, err := language.Parse(value)
	if err != nil {
		return value
	}
	name := display.English.Languages().Name(tag)
	if strings.TrimSpace(name) == "" {
		return value
	}
	return name
}

// looksLikeTag matches the shapes users actually type ("en", "pt-BR",
// "zh-Hant") without mistaking display names like "English" for tags.
func looksLikeTag(value string) bool {
	primary, _, _ := strings.Cut(value, "-")
	if len(primary) < 2 || len(primary) > 3 {
		return false
	}
	for _, r := range primary {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
