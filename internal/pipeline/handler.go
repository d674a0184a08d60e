package pipeline

import (
	"context"
	"log/slog"

	"github.com/suicapindexer/indexer/internal/chain"
)

// Handler is a two-phase pipeline stage: Process is a pure,
// side-effect-free transform from one checkpoint to a batch of opaque
// value records; Commit writes a batch to storage using upsert
// semantics that make replay a no-op. The batch element type is
// handler-specific (*CreationGroup, *store.CapVersion, or
// *store.CapTransfer); each handler only ever type-asserts its own kind.
type Handler interface {
	Name() string
	Process(ckpt *chain.Checkpoint) ([]any, error)
	Commit(ctx context.Context, c Committer, batch []any) error
}

// resolveUpgradeCap is a small shared helper: every handler below needs
// to resolve an object reference from the checkpoint's object set and
// confirm it is an upgrade-capability Move object before decoding it.
func resolveUpgradeCap(ckpt *chain.Checkpoint, ref chain.ObjectRef, log *slog.Logger) (chain.Object, chain.UpgradeCapFields, bool) {
	obj, ok := ckpt.Object(ref)
	if !ok {
		return chain.Object{}, chain.UpgradeCapFields{}, false
	}
	md, ok := obj.Data.(chain.MoveData)
	if !ok || !chain.IsUpgradeCapType(md.TypeTag) {
		return chain.Object{}, chain.UpgradeCapFields{}, false
	}
	fields, ok := chain.DecodeUpgradeCap(md.Contents)
	if !ok {
		if log != nil {
			log.Error("upgrade cap move-deserialization failed", "object_id", chain.HexAddress(obj.ObjectID))
		}
		return chain.Object{}, chain.UpgradeCapFields{}, false
	}
	return obj, fields, true
}
