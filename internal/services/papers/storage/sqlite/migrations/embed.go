package migrations

import "embed"

// FS contains embedded SQLite migrations for papers storage.
//
//go:embed *.sql
var FS embed.FS
