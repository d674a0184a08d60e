// Command indexer runs the sequential checkpoint-ingestion pipeline: it
// drives the created/upgrade/transfer handlers over checkpoints pulled
// from REMOTE_STORE_URL and commits their output to DATABASE_URL.
// Grounded on lake/cmd/indexer/main.go's flag/signal/metrics bootstrap
// skeleton.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/suicapindexer/indexer/internal/ingestion"
	"github.com/suicapindexer/indexer/internal/metrics"
	"github.com/suicapindexer/indexer/internal/pipeline"
	"github.com/suicapindexer/indexer/internal/store"
)

var (
	// Set by LDFLAGS.
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultMetricsAddr = "0.0.0.0:0"
	defaultFlushRows   = 500
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "address to listen on for prometheus metrics")
	fromSeqFlag := flag.Uint64("from-checkpoint", 0, "start checkpoint sequence number; no earlier checkpoints are backfilled")
	flushCheckpointsFlag := flag.Int("flush-checkpoints", 1, "flush a handler's batch after this many processed checkpoints")
	flushRowsFlag := flag.Int("flush-rows", defaultFlushRows, "flush a handler's batch once it reaches this many rows")
	flushIntervalFlag := flag.Duration("flush-interval", 5*time.Second, "flush a handler's batch after this much elapsed time")
	maxCommitRetriesFlag := flag.Uint("max-commit-retries", 5, "bounded retries for a failing commit before the handler's watermark stalls")
	pollIntervalFlag := flag.Duration("poll-interval", 2*time.Second, "how long to wait between checkpoint-fetch attempts when the source has no new checkpoint yet")

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
	remoteStoreURL := os.Getenv("REMOTE_STORE_URL")
	if remoteStoreURL == "" {
		return fmt.Errorf("REMOTE_STORE_URL must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("indexer: received signal", "signal", sig.String())
		cancel()
	}()

	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, mux); err != nil && err != http.ErrServerClosed {
				log.Error("prometheus metrics server error", "error", err)
			}
		}()
	}

	db, err := store.Open(ctx, store.Config{DatabaseURL: databaseURL})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	src := ingestion.HTTPSource{
		BaseURL:      remoteStoreURL,
		Logger:       log,
		PollInterval: *pollIntervalFlag,
	}

	driver, err := pipeline.New(pipeline.Config{
		Logger:           log,
		Clock:            clockwork.NewRealClock(),
		Store:            db,
		FlushCheckpoints: *flushCheckpointsFlag,
		FlushRows:        *flushRowsFlag,
		FlushInterval:    *flushIntervalFlag,
		MaxCommitRetries: *maxCommitRetriesFlag,
		Metrics:          metrics.Recorder{},
	},
		&pipeline.CreatedHandler{Log: log},
		&pipeline.UpgradeHandler{Log: log},
		&pipeline.TransferHandler{Log: log},
	)
	if err != nil {
		return fmt.Errorf("build driver: %w", err)
	}

	log.Info("indexer starting", "version", version, "commit", commit, "from_checkpoint", *fromSeqFlag)
	if err := driver.Run(ctx, src, *fromSeqFlag); err != nil && ctx.Err() == nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}

	log.Info("indexer stopped")
	return nil
}
