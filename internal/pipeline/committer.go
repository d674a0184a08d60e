package pipeline

import (
	"context"

	"github.com/suicapindexer/indexer/internal/store"
)

// Committer is the persistence surface the handlers need. *store.Store
// satisfies it; tests substitute an in-memory fake so the driver and
// handlers can be exercised without a live Postgres instance.
type Committer interface {
	CommitCreations(ctx context.Context, caps []store.Cap, versions []store.CapVersion, transfers []store.CapTransfer) error
	CommitVersions(ctx context.Context, versions []store.CapVersion) error
	CommitTransfers(ctx context.Context, transfers []store.CapTransfer) error
}
