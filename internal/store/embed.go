package store

import "embed"

// MigrationsFS embeds the numbered SQL migration files executed by
// RunMigrations.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
