package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

// RunMigrations executes every embedded .sql file in filename order
// against the store's pool, recording each applied filename in
// schema_migrations so repeated runs are no-ops. Grounded on
// lake/indexer/pkg/clickhouse/migrations.go's embedded-FS sorted-file
// runner, adapted to pgx/Postgres with an applied-set ledger table
// (ClickHouse's CREATE TABLE IF NOT EXISTS-only idempotency doesn't
// extend to CREATE TYPE, which Postgres requires a guard for).
func (s *Store) RunMigrations(ctx context.Context, log *slog.Logger) error {
	entries, err := MigrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []fs.DirEntry
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	for _, f := range files {
		name := f.Name()

		// The ledger table itself must exist before we can consult it;
		// its own migration is always re-applied (CREATE TABLE IF NOT
		// EXISTS is naturally idempotent) and never recorded.
		if name != "0001_schema_migrations.sql" {
			var applied bool
			row := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, name)
			if err := row.Scan(&applied); err != nil {
				return fmt.Errorf("check migration %s applied: %w", name, err)
			}
			if applied {
				continue
			}
		}

		content, err := MigrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		log.Info("applying migration", "file", name)
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if name != "0001_schema_migrations.sql" {
			if _, err := s.pool.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
		}
	}

	log.Info("migrations complete", "count", len(files))
	return nil
}
