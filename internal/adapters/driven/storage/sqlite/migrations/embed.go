// Package migrations embeds SQL migration files for the SQLite stores.
package migrations

import "embed"

// Meta contains the migrations of the metadata database
// (sync cursors and sync history).
//
//go:embed meta/*.sql
var Meta embed.FS

// Records contains the migrations of every record database.
//
//go:embed records/*.sql
var Records embed.FS
