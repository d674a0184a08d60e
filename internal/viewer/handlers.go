package viewer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/suicapindexer/indexer/internal/chain"
	"github.com/suicapindexer/indexer/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeNotFound renders the "Not Found" body this API uses for unknown
// ids — a 200-status JSON body, not a 404 status.
func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Not Found"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	counts, err := s.cfg.Store.Counts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleSearch resolves a hex id to either a Cap or a package (resolved
// by package_id on cap_versions).
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if _, ok := chain.ParseHexAddress(id); !ok {
		writeError(w, http.StatusBadRequest, "id must be a 0x-prefixed 32-byte hex string")
		return
	}

	ctx := r.Context()
	if cap, err := s.cfg.Store.CapByID(ctx, id); err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"kind": "cap", "object_id": cap.ObjectID})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if pkg, err := s.cfg.Store.PackageByID(ctx, id); err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"kind": "package", "package_id": pkg.PackageID})
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeNotFound(w)
}

// capView is the JSON rendering of a capability's detail page, grounded
// on original_source/crates/backend/src/templates.rs's Cap struct and
// handlers.rs's fetch_cap_details.
type capView struct {
	ID            string `json:"id"`
	ShortID       string `json:"short_id"`
	Package       string `json:"package"`
	PackageFull   string `json:"package_full"`
	Version       int64  `json:"version"`
	Policy        string `json:"policy"`
	Owner         string `json:"owner"`
	OwnerFull     string `json:"owner_full"`
	CreatedBy     string `json:"created_by"`
	CreatedByFull string `json:"created_by_full"`
	TxDigest      string `json:"tx_digest"`
	TimeAgo       string `json:"time_ago"`
}

func (s *Server) handleCap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := chain.ParseHexAddress(id); !ok {
		writeError(w, http.StatusBadRequest, "id must be a 0x-prefixed 32-byte hex string")
		return
	}

	ctx := r.Context()
	cap, err := s.cfg.Store.CapByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		writeNotFound(w)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	packageID := "Unknown"
	version := int64(0)
	if v, err := s.cfg.Store.CapLatestVersion(ctx, id); err == nil {
		packageID, version = v.PackageID, v.Version
	}

	ownerAddress := chain.ZeroAddressHex
	if t, err := s.cfg.Store.CapLatestTransfer(ctx, id); err == nil {
		ownerAddress = t.NewOwnerAddress
	}

	createdBy := chain.ZeroAddressHex
	if t, err := s.cfg.Store.CapFirstTransfer(ctx, id); err == nil {
		createdBy = t.NewOwnerAddress
	}

	writeJSON(w, http.StatusOK, capView{
		ID:            cap.ObjectID,
		ShortID:       shortSuiObjectID(cap.ObjectID),
		Package:       shortSuiObjectID(packageID),
		PackageFull:   packageID,
		Version:       version,
		Policy:        cap.Policy.String(),
		Owner:         shortSuiObjectID(ownerAddress),
		OwnerFull:     ownerAddress,
		CreatedBy:     shortSuiObjectID(createdBy),
		CreatedByFull: createdBy,
		TxDigest:      cap.CreatedTxDigest,
		TimeAgo:       formatTimeAgo(cap.CreatedAt, s.cfg.Clock.Now()),
	})
}

type capVersionView struct {
	Version       int64  `json:"version"`
	PackageID     string `json:"package_id"`
	PackageIDFull string `json:"package_id_full"`
	TxDigest      string `json:"tx_digest"`
	SeqCheckpoint int64  `json:"seq_checkpoint"`
	TimeAgo       string `json:"time_ago"`
}

func (s *Server) handleCapVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := chain.ParseHexAddress(id); !ok {
		writeError(w, http.StatusBadRequest, "id must be a 0x-prefixed 32-byte hex string")
		return
	}

	versions, err := s.cfg.Store.CapVersionsHistory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := s.cfg.Clock.Now()
	views := make([]capVersionView, 0, len(versions))
	for _, v := range versions {
		views = append(views, capVersionView{
			Version:       v.Version,
			PackageID:     shortSuiObjectID(v.PackageID),
			PackageIDFull: v.PackageID,
			TxDigest:      shortSuiObjectID(v.TxDigest),
			SeqCheckpoint: v.SeqCheckpoint,
			TimeAgo:       formatTimeAgo(v.Timestamp, now),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"versions": views})
}

type capTransferView struct {
	TxDigest      string `json:"tx_digest"`
	SeqCheckpoint int64  `json:"seq_checkpoint"`
	TimeAgo       string `json:"time_ago"`
	From          string `json:"from"`
	FromFull      string `json:"from_full"`
	To            string `json:"to"`
	ToFull        string `json:"to_full"`
}

func (s *Server) handleCapTransfers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := chain.ParseHexAddress(id); !ok {
		writeError(w, http.StatusBadRequest, "id must be a 0x-prefixed 32-byte hex string")
		return
	}

	transfers, err := s.cfg.Store.CapTransfersHistory(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := s.cfg.Clock.Now()
	views := make([]capTransferView, 0, len(transfers))
	for _, t := range transfers {
		views = append(views, capTransferView{
			TxDigest:      shortSuiObjectID(t.TxDigest),
			SeqCheckpoint: t.SeqCheckpoint,
			TimeAgo:       formatTimeAgo(t.Timestamp, now),
			From:          shortSuiObjectID(t.OldOwnerAddress),
			FromFull:      t.OldOwnerAddress,
			To:            shortSuiObjectID(t.NewOwnerAddress),
			ToFull:        t.NewOwnerAddress,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": views})
}

type packageView struct {
	ID                string `json:"id"`
	ShortID           string `json:"short_id"`
	UpgradeCapID      string `json:"upgrade_cap_id"`
	UpgradeCapIDFull  string `json:"upgrade_cap_id_full"`
	Version           int64  `json:"version"`
	PublishedBy       string `json:"published_by"`
	PublishedByFull   string `json:"published_by_full"`
	TimeAgo           string `json:"time_ago"`
}

func (s *Server) handlePackage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := chain.ParseHexAddress(id); !ok {
		writeError(w, http.StatusBadRequest, "id must be a 0x-prefixed 32-byte hex string")
		return
	}

	pkg, err := s.cfg.Store.PackageByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeNotFound(w)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, packageView{
		ID:               pkg.PackageID,
		ShortID:          shortSuiObjectID(pkg.PackageID),
		UpgradeCapID:     shortSuiObjectID(pkg.ObjectID),
		UpgradeCapIDFull: pkg.ObjectID,
		Version:          pkg.Version,
		PublishedBy:      shortSuiObjectID(pkg.Publisher),
		PublishedByFull:  pkg.Publisher,
		TimeAgo:          formatTimeAgo(pkg.Timestamp, s.cfg.Clock.Now()),
	})
}
