// Package migrations embeds the versioned Postgres schema applied by goose.
package migrations

import "embed"

// FS holds every NNNNN_name.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
