package pipeline

import (
	"context"
	"sync"

	"github.com/suicapindexer/indexer/internal/chain"
	"github.com/suicapindexer/indexer/internal/store"
)

// fakeCommitter is an in-memory Committer used by tests in place of a
// live Postgres-backed *store.Store.
type fakeCommitter struct {
	mu        sync.Mutex
	caps      []store.Cap
	versions  []store.CapVersion
	transfers []store.CapTransfer
	failNext  int
}

func (f *fakeCommitter) CommitCreations(ctx context.Context, caps []store.Cap, versions []store.CapVersion, transfers []store.CapTransfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return assertErr
	}
	f.caps = append(f.caps, caps...)
	f.versions = append(f.versions, versions...)
	f.transfers = append(f.transfers, transfers...)
	return nil
}

func (f *fakeCommitter) CommitVersions(ctx context.Context, versions []store.CapVersion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return assertErr
	}
	f.versions = append(f.versions, versions...)
	return nil
}

func (f *fakeCommitter) CommitTransfers(ctx context.Context, transfers []store.CapTransfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return assertErr
	}
	f.transfers = append(f.transfers, transfers...)
	return nil
}

type assertErrType struct{}

func (assertErrType) Error() string { return "forced commit failure" }

var assertErr error = assertErrType{}

// fakeSource replays a fixed slice of checkpoints then closes.
type fakeSource struct {
	checkpoints []*chain.Checkpoint
}

func (s *fakeSource) Checkpoints(ctx context.Context, fromSeq uint64) (<-chan *chain.Checkpoint, <-chan error) {
	out := make(chan *chain.Checkpoint, len(s.checkpoints))
	errs := make(chan error, 1)
	for _, c := range s.checkpoints {
		if c.Sequence >= fromSeq {
			out <- c
		}
	}
	close(out)
	return out, errs
}

// --- fixture builders -------------------------------------------------

func upgradeCapContents(packageID [32]byte, version uint64, policy uint8) []byte {
	var contents []byte
	contents = append(contents, make([]byte, 32)...) // UID
	contents = append(contents, packageID[:]...)
	var v [8]byte
	for i := 0; i < 8; i++ {
		v[i] = byte(version >> (8 * i))
	}
	contents = append(contents, v[:]...)
	contents = append(contents, policy)
	return contents
}

func addr(b byte) [32]byte {
	var a [32]byte
	a[31] = b
	return a
}
