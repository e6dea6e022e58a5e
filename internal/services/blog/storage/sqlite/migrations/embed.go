package migrations

import "embed"

// FS contains embedded SQLite migrations for blog storage.
//
//go:embed *.sql
var FS embed.FS
