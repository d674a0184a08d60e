// Package viewer implements the read-only HTTP surface over the
// indexed upgrade-capability tables, grounded on lake/api/main.go's
// router/middleware/CORS wiring and
// original_source/crates/backend/src/handlers.rs's exact
// query/rendering semantics.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"

	"github.com/suicapindexer/indexer/internal/metrics"
	"github.com/suicapindexer/indexer/internal/store"
)

// QueryStore is the read surface the viewer needs. *store.Store
// satisfies it; tests substitute an in-memory fake.
type QueryStore interface {
	Counts(ctx context.Context) (store.Counts, error)
	CapByID(ctx context.Context, objectID string) (store.Cap, error)
	CapLatestVersion(ctx context.Context, objectID string) (store.CapVersion, error)
	CapVersionsHistory(ctx context.Context, objectID string) ([]store.CapVersion, error)
	CapLatestTransfer(ctx context.Context, objectID string) (store.CapTransfer, error)
	CapFirstTransfer(ctx context.Context, objectID string) (store.CapTransfer, error)
	CapTransfersHistory(ctx context.Context, objectID string) ([]store.CapTransfer, error)
	PackageByID(ctx context.Context, packageID string) (store.CapVersion, error)
	Ping(ctx context.Context) error
}

// Config configures the viewer's router.
type Config struct {
	Store       QueryStore
	Logger      *slog.Logger
	Clock       clockwork.Clock
	CORSOrigins []string
	StaticDir   string
}

func (c Config) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	return c
}

// Server is the viewer's chi router plus its shutdown-readiness flag.
type Server struct {
	cfg          Config
	router       chi.Router
	shuttingDown atomic.Bool
}

func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	r.Get("/", s.handleHome)
	r.Get("/search", s.handleSearch)
	r.Get("/cap/{id}", s.handleCap)
	r.Get("/cap/{id}/versions", s.handleCapVersions)
	r.Get("/cap/{id}/transfers", s.handleCapTransfers)
	r.Get("/package/{id}", s.handlePackage)

	if cfg.StaticDir != "" {
		if _, err := os.Stat(cfg.StaticDir); err == nil {
			s.cfg.Logger.Info("serving static assets", "dir", cfg.StaticDir)
			fileServer := http.FileServer(http.Dir(cfg.StaticDir))
			r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
		}
	}

	s.router = r
	return s, nil
}

func (s *Server) Router() http.Handler { return s.router }

// MarkShuttingDown flips the readiness flag so /readyz starts returning
// 503 immediately, grounded on lake/api/main.go's shuttingDown atomic.Bool.
func (s *Server) MarkShuttingDown() { s.shuttingDown.Store(true) }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shutting down"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.cfg.Store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database connection failed: " + err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
