// Command migrate applies the embedded schema migrations to DATABASE_URL
// and exits. Grounded on lake/indexer/pkg/clickhouse/migrations.go's
// standalone-runner convention, adapted to pgx/Postgres.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/suicapindexer/indexer/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	flag.Parse()

	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	if *verboseFlag {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}

	ctx := context.Background()
	db, err := store.Open(ctx, store.Config{DatabaseURL: databaseURL})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	log.Info("migrate: done")
	return nil
}
