// Package migrations holds the embedded SQLite schema migrations.
package migrations

import "embed"

// FS contains the embedded migrations, applied in file name order.
//
//go:embed *.sql
var FS embed.FS
