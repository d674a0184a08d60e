package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned by single-row lookups that found nothing; the
// viewer renders this as a "Not Found" body rather than a 404 status.
var ErrNotFound = errors.New("not found")

// Counts is the home-page summary rendered by GET /.
type Counts struct {
	Caps      int64
	Versions  int64
	Transfers int64
}

func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	row := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM caps),
			(SELECT count(*) FROM cap_versions),
			(SELECT count(*) FROM cap_transfers)`)
	if err := row.Scan(&c.Caps, &c.Versions, &c.Transfers); err != nil {
		return Counts{}, fmt.Errorf("counts: %w", err)
	}
	return c, nil
}

// CapByID fetches a single Cap by its object id.
func (s *Store) CapByID(ctx context.Context, objectID string) (Cap, error) {
	var c Cap
	var policy string
	row := s.pool.QueryRow(ctx, `
		SELECT object_id, policy, created_seq_checkpoint, created_tx_digest, created_at
		FROM caps WHERE object_id = $1`, objectID)
	if err := row.Scan(&c.ObjectID, &policy, &c.CreatedSeqCheckpoint, &c.CreatedTxDigest, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Cap{}, ErrNotFound
		}
		return Cap{}, fmt.Errorf("cap by id %s: %w", objectID, err)
	}
	c.Policy = policyFromWireToken(policy)
	return c, nil
}

// CapLatestVersion returns the highest-version cap_versions row for a capability.
func (s *Store) CapLatestVersion(ctx context.Context, objectID string) (CapVersion, error) {
	return s.capVersionWhere(ctx, `object_id = $1 ORDER BY version DESC LIMIT 1`, objectID)
}

// CapVersionsHistory returns all versions for a capability, newest first.
func (s *Store) CapVersionsHistory(ctx context.Context, objectID string) ([]CapVersion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT object_id, package_id, version, seq_checkpoint, tx_digest, publisher, timestamp, policy
		FROM cap_versions WHERE object_id = $1 ORDER BY version DESC`, objectID)
	if err != nil {
		return nil, fmt.Errorf("cap versions history %s: %w", objectID, err)
	}
	defer rows.Close()

	var out []CapVersion
	for rows.Next() {
		v, err := scanCapVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// CapLatestTransfer returns the most recent transfer for a capability.
func (s *Store) CapLatestTransfer(ctx context.Context, objectID string) (CapTransfer, error) {
	return s.capTransferWhere(ctx, `object_id = $1 ORDER BY seq_checkpoint DESC LIMIT 1`, objectID)
}

// CapFirstTransfer returns the synthesized creation transfer (old=ZERO)
// for a capability.
func (s *Store) CapFirstTransfer(ctx context.Context, objectID string) (CapTransfer, error) {
	return s.capTransferWhere(ctx, `object_id = $1 ORDER BY seq_checkpoint ASC LIMIT 1`, objectID)
}

// CapTransfersHistory returns all transfers for a capability, newest first.
func (s *Store) CapTransfersHistory(ctx context.Context, objectID string) ([]CapTransfer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT object_id, old_owner_address, new_owner_address, seq_checkpoint, tx_digest, timestamp
		FROM cap_transfers WHERE object_id = $1 ORDER BY seq_checkpoint DESC`, objectID)
	if err != nil {
		return nil, fmt.Errorf("cap transfers history %s: %w", objectID, err)
	}
	defer rows.Close()

	var out []CapTransfer
	for rows.Next() {
		tr, err := scanCapTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// PackageByID resolves a package id to the cap_versions row that minted
// it, i.e. the package page shown by GET /package/{id}.
func (s *Store) PackageByID(ctx context.Context, packageID string) (CapVersion, error) {
	return s.capVersionWhere(ctx, `package_id = $1 LIMIT 1`, packageID)
}

func (s *Store) capVersionWhere(ctx context.Context, whereAndTail string, args ...any) (CapVersion, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT object_id, package_id, version, seq_checkpoint, tx_digest, publisher, timestamp, policy
		FROM cap_versions WHERE `+whereAndTail, args...)
	v, err := scanCapVersion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CapVersion{}, ErrNotFound
		}
		return CapVersion{}, fmt.Errorf("cap version query: %w", err)
	}
	return v, nil
}

func (s *Store) capTransferWhere(ctx context.Context, whereAndTail string, args ...any) (CapTransfer, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT object_id, old_owner_address, new_owner_address, seq_checkpoint, tx_digest, timestamp
		FROM cap_transfers WHERE `+whereAndTail, args...)
	tr, err := scanCapTransfer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CapTransfer{}, ErrNotFound
		}
		return CapTransfer{}, fmt.Errorf("cap transfer query: %w", err)
	}
	return tr, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapVersion(row rowScanner) (CapVersion, error) {
	var v CapVersion
	var policy string
	var ts time.Time
	if err := row.Scan(&v.ObjectID, &v.PackageID, &v.Version, &v.SeqCheckpoint, &v.TxDigest, &v.Publisher, &ts, &policy); err != nil {
		return CapVersion{}, err
	}
	v.Timestamp = ts
	v.Policy = policyFromWireToken(policy)
	return v, nil
}

func scanCapTransfer(row rowScanner) (CapTransfer, error) {
	var tr CapTransfer
	var ts time.Time
	if err := row.Scan(&tr.ObjectID, &tr.OldOwnerAddress, &tr.NewOwnerAddress, &tr.SeqCheckpoint, &tr.TxDigest, &ts); err != nil {
		return CapTransfer{}, err
	}
	tr.Timestamp = ts
	return tr, nil
}
