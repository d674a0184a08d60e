package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the PostgreSQL connection pool.
type Config struct {
	DatabaseURL     string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	return c
}

// Store wraps a pgx connection pool and exposes the upsert/query surface
// the pipeline handlers and HTTP viewer need.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses cfg, connects, and pings the database. It does not run
// migrations — see internal/store/migrations and cmd/migrate.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// CommitCreations atomically inserts a batch of synthesized creation
// groups (Cap + CapVersion(v=1) + CapTransfer(old=ZERO)). Every
// statement uses ON CONFLICT DO NOTHING so replaying the same
// checkpoint is a no-op.
func (s *Store) CommitCreations(ctx context.Context, caps []Cap, versions []CapVersion, transfers []CapTransfer) error {
	if len(caps) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin creation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range caps {
		_, err := tx.Exec(ctx, `
			INSERT INTO caps (object_id, policy, created_seq_checkpoint, created_tx_digest, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (object_id) DO NOTHING`,
			c.ObjectID, c.Policy.String(), c.CreatedSeqCheckpoint, c.CreatedTxDigest, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert cap %s: %w", c.ObjectID, err)
		}
	}
	for _, v := range versions {
		if err := insertCapVersion(ctx, tx, v); err != nil {
			return err
		}
	}
	for _, tr := range transfers {
		if err := insertCapTransfer(ctx, tx, tr); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit creation tx: %w", err)
	}
	return nil
}

// CommitVersions bulk-inserts cap_versions rows produced by the upgrade
// handler, ON CONFLICT (object_id, version) DO NOTHING.
func (s *Store) CommitVersions(ctx context.Context, versions []CapVersion) error {
	if len(versions) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin version tx: %w", err)
	}
	defer tx.Rollback(ctx)
	for _, v := range versions {
		if err := insertCapVersion(ctx, tx, v); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit version tx: %w", err)
	}
	return nil
}

// CommitTransfers bulk-inserts cap_transfers rows produced by the
// transfer handler, ON CONFLICT (object_id, tx_digest) DO NOTHING.
func (s *Store) CommitTransfers(ctx context.Context, transfers []CapTransfer) error {
	if len(transfers) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transfer tx: %w", err)
	}
	defer tx.Rollback(ctx)
	for _, tr := range transfers {
		if err := insertCapTransfer(ctx, tx, tr); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transfer tx: %w", err)
	}
	return nil
}

func insertCapVersion(ctx context.Context, tx pgx.Tx, v CapVersion) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO cap_versions (object_id, package_id, version, seq_checkpoint, tx_digest, publisher, timestamp, policy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (object_id, version) DO NOTHING`,
		v.ObjectID, v.PackageID, v.Version, v.SeqCheckpoint, v.TxDigest, v.Publisher, v.Timestamp, v.Policy.String())
	if err != nil {
		return fmt.Errorf("insert cap_version %s/%d: %w", v.ObjectID, v.Version, err)
	}
	return nil
}

func insertCapTransfer(ctx context.Context, tx pgx.Tx, tr CapTransfer) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO cap_transfers (object_id, old_owner_address, new_owner_address, seq_checkpoint, tx_digest, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (object_id, tx_digest) DO NOTHING`,
		tr.ObjectID, tr.OldOwnerAddress, tr.NewOwnerAddress, tr.SeqCheckpoint, tr.TxDigest, tr.Timestamp)
	if err != nil {
		return fmt.Errorf("insert cap_transfer %s/%s: %w", tr.ObjectID, tr.TxDigest, err)
	}
	return nil
}
