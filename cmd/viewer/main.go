// Command viewer serves the read-only HTTP JSON API over the indexed
// upgrade-capability tables. Grounded on lake/api/main.go's
// listen/shutdown bootstrap.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/suicapindexer/indexer/internal/store"
	"github.com/suicapindexer/indexer/internal/viewer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	hostFlag := flag.String("host", "", "bind host for the HTTP viewer; overrides HOST env var (default 127.0.0.1)")
	portFlag := flag.String("port", "", "bind port for the HTTP viewer; overrides PORT env var (default 8080)")
	metricsAddrFlag := flag.String("metrics-addr", "0.0.0.0:0", "address to listen on for prometheus metrics")
	staticDirFlag := flag.String("static-dir", "", "optional directory of static assets served under /static/*")
	corsOriginsFlag := flag.String("cors-origins", "*", "comma-separated list of allowed CORS origins")
	shutdownGraceFlag := flag.Duration("shutdown-grace", 10*time.Second, "how long to wait for in-flight requests during shutdown")

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

	host := *hostFlag
	if host == "" {
		host = os.Getenv("HOST")
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port := *portFlag
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}
	listenAddr := net.JoinHostPort(host, port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, store.Config{DatabaseURL: databaseURL})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	var origins []string
	for _, o := range strings.Split(*corsOriginsFlag, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	srv, err := viewer.New(viewer.Config{
		Store:       db,
		Logger:      log,
		CORSOrigins: origins,
		StaticDir:   *staticDirFlag,
	})
	if err != nil {
		return fmt.Errorf("build viewer: %w", err)
	}

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: srv.Router(),
	}

	if *metricsAddrFlag != "" {
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

	serveErrs := make(chan error, 1)
	go func() {
		log.Info("viewer listening", "address", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrs <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("viewer: received signal, shutting down", "signal", sig.String())
	case err := <-serveErrs:
		return fmt.Errorf("viewer server error: %w", err)
	}

	srv.MarkShuttingDown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *shutdownGraceFlag)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("viewer stopped")
	return nil
}
