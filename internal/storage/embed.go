package storage

import "embed"

// MigrationFS embeds the durable tier's goose migrations into the compiled
// binary, so no migration files need to exist on disk at runtime.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
