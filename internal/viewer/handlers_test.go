package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/suicapindexer/indexer/internal/chain"
	"github.com/suicapindexer/indexer/internal/store"
)

type fakeQueryStore struct {
	caps      map[string]store.Cap
	versions  map[string][]store.CapVersion
	transfers map[string][]store.CapTransfer
	byPackage map[string]store.CapVersion
}

func newFakeQueryStore() *fakeQueryStore {
	return &fakeQueryStore{
		caps:      map[string]store.Cap{},
		versions:  map[string][]store.CapVersion{},
		transfers: map[string][]store.CapTransfer{},
		byPackage: map[string]store.CapVersion{},
	}
}

func (f *fakeQueryStore) Counts(ctx context.Context) (store.Counts, error) {
	var versions, transfers int64
	for _, v := range f.versions {
		versions += int64(len(v))
	}
	for _, t := range f.transfers {
		transfers += int64(len(t))
	}
	return store.Counts{Caps: int64(len(f.caps)), Versions: versions, Transfers: transfers}, nil
}

func (f *fakeQueryStore) CapByID(ctx context.Context, objectID string) (store.Cap, error) {
	c, ok := f.caps[objectID]
	if !ok {
		return store.Cap{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeQueryStore) CapLatestVersion(ctx context.Context, objectID string) (store.CapVersion, error) {
	vs := f.versions[objectID]
	if len(vs) == 0 {
		return store.CapVersion{}, store.ErrNotFound
	}
	latest := vs[0]
	for _, v := range vs {
		if v.Version > latest.Version {
			latest = v
		}
	}
	return latest, nil
}

func (f *fakeQueryStore) CapVersionsHistory(ctx context.Context, objectID string) ([]store.CapVersion, error) {
	return f.versions[objectID], nil
}

func (f *fakeQueryStore) CapLatestTransfer(ctx context.Context, objectID string) (store.CapTransfer, error) {
	ts := f.transfers[objectID]
	if len(ts) == 0 {
		return store.CapTransfer{}, store.ErrNotFound
	}
	latest := ts[0]
	for _, t := range ts {
		if t.SeqCheckpoint > latest.SeqCheckpoint {
			latest = t
		}
	}
	return latest, nil
}

func (f *fakeQueryStore) CapFirstTransfer(ctx context.Context, objectID string) (store.CapTransfer, error) {
	ts := f.transfers[objectID]
	if len(ts) == 0 {
		return store.CapTransfer{}, store.ErrNotFound
	}
	first := ts[0]
	for _, t := range ts {
		if t.SeqCheckpoint < first.SeqCheckpoint {
			first = t
		}
	}
	return first, nil
}

func (f *fakeQueryStore) CapTransfersHistory(ctx context.Context, objectID string) ([]store.CapTransfer, error) {
	return f.transfers[objectID], nil
}

func (f *fakeQueryStore) PackageByID(ctx context.Context, packageID string) (store.CapVersion, error) {
	v, ok := f.byPackage[packageID]
	if !ok {
		return store.CapVersion{}, store.ErrNotFound
	}
	return v, nil
}

func (f *fakeQueryStore) Ping(ctx context.Context) error { return nil }

func newTestServer(t *testing.T, fq *fakeQueryStore) *Server {
	t.Helper()
	s, err := New(Config{Store: fq, Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)
	return s
}

func seededCap(id string) (string, store.Cap) {
	return id, store.Cap{
		ObjectID:             id,
		Policy:               chain.PolicyCompatible,
		CreatedSeqCheckpoint: 100,
		CreatedTxDigest:      "0xf01",
		CreatedAt:            time.Unix(1_700_000_000, 0).UTC(),
	}
}

func TestHandleHomeReturnsCounts(t *testing.T) {
	fq := newFakeQueryStore()
	id, cap := seededCap("0xaaa")
	fq.caps[id] = cap
	fq.versions[id] = []store.CapVersion{{ObjectID: id, Version: 1, PackageID: "0xbbb"}}
	fq.transfers[id] = []store.CapTransfer{{ObjectID: id, TxDigest: "0xf01", SeqCheckpoint: 100, OldOwnerAddress: chain.ZeroAddressHex, NewOwnerAddress: "0xccc"}}

	s := newTestServer(t, fq)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var counts store.Counts
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	require.Equal(t, int64(1), counts.Caps)
}

func TestHandleSearchMalformedIDReturns400(t *testing.T) {
	s := newTestServer(t, newFakeQueryStore())
	req := httptest.NewRequest(http.MethodGet, "/search?id=zzz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleCapUnknownIDRendersNotFound(t *testing.T) {
	s := newTestServer(t, newFakeQueryStore())
	unknown := "0x1111111111111111111111111111111111111111111111111111111111111111"
	req := httptest.NewRequest(http.MethodGet, "/cap/"+unknown, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "Not Found", body["status"])
}

func TestHandleCapReturnsDetails(t *testing.T) {
	fq := newFakeQueryStore()
	id, cap := seededCap("0x0aaa111111111111111111111111111111111111111111111111111111111111")
	fq.caps[id] = cap
	fq.versions[id] = []store.CapVersion{{ObjectID: id, Version: 1, PackageID: "0xbbb"}}
	fq.transfers[id] = []store.CapTransfer{{ObjectID: id, TxDigest: "0xf01", SeqCheckpoint: 100, OldOwnerAddress: chain.ZeroAddressHex, NewOwnerAddress: "0xccc"}}

	s := newTestServer(t, fq)
	req := httptest.NewRequest(http.MethodGet, "/cap/"+id, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var view capView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Equal(t, id, view.ID)
	require.Equal(t, "compatible", view.Policy)
}

func TestHandleCapBadIDReturns400(t *testing.T) {
	s := newTestServer(t, newFakeQueryStore())
	req := httptest.NewRequest(http.MethodGet, "/cap/not-hex", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReadyzReflectsShuttingDown(t *testing.T) {
	s := newTestServer(t, newFakeQueryStore())
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	s.MarkShuttingDown()
	w2 := httptest.NewRecorder()
	s.Router().ServeHTTP(w2, req)
	require.Equal(t, http.StatusServiceUnavailable, w2.Code)
}
