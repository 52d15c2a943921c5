// Package migrations embeds the PostgreSQL schema files applied by
// `tvusvet-server migrate up` and on startup when MIGRATE_ON_START is set.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
