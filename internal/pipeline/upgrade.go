package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/suicapindexer/indexer/internal/chain"
	"github.com/suicapindexer/indexer/internal/store"
)

// UpgradeHandler detects commit_upgrade calls and emits one CapVersion
// per accepted call.
type UpgradeHandler struct {
	Log *slog.Logger
}

func (h *UpgradeHandler) Name() string { return "upgrade" }

func (h *UpgradeHandler) Process(ckpt *chain.Checkpoint) ([]any, error) {
	var out []any
	ts := time.UnixMilli(int64(ckpt.TimestampMs)).UTC()

	for _, tx := range ckpt.Transactions {
		if !tx.Effects.Status.OK {
			continue
		}
		inputs, commands, ok := chain.AsProgrammable(tx.Kind)
		if !ok {
			continue
		}
		digest := chain.DigestHex(tx.Digest)

		for _, cmd := range commands {
			mc, ok := cmd.(chain.MoveCallCommand)
			if !ok || !chain.IsCommitUpgradeCall(mc) {
				continue
			}
			if len(mc.Arguments) == 0 {
				continue
			}

			preRef, ok := resolveImmOrOwnedArg(mc.Arguments[0], inputs)
			if !ok {
				continue
			}

			var mutatedRef chain.ObjectRef
			found := false
			for _, m := range tx.Effects.MutatedExcludingGas {
				if m.ObjectID == preRef.ObjectID {
					mutatedRef, found = m, true
					break
				}
			}
			if !found {
				continue
			}

			obj, fields, ok := resolveUpgradeCap(ckpt, mutatedRef, h.Log)
			if !ok {
				continue
			}

			policy, _ := chain.PolicyFromU8(fields.PolicyRaw)

			out = append(out, &store.CapVersion{
				ObjectID:      chain.HexAddress(obj.ObjectID),
				PackageID:     chain.HexAddress(fields.PackageID),
				Version:       int64(fields.Version),
				SeqCheckpoint: int64(ckpt.Sequence),
				TxDigest:      digest,
				Publisher:     obj.Owner.String(),
				Timestamp:     ts,
				Policy:        policy,
			})
		}
	}
	return out, nil
}

func (h *UpgradeHandler) Commit(ctx context.Context, c Committer, batch []any) error {
	versions := make([]store.CapVersion, 0, len(batch))
	for _, v := range batch {
		versions = append(versions, *v.(*store.CapVersion))
	}
	return c.CommitVersions(ctx, versions)
}

// resolveImmOrOwnedArg resolves argument `a` through the input table,
// expecting an Input(idx) naming an Object(ImmOrOwnedObject(ref))
// CallArg. Any other shape is a silent decode miss: not all commands
// are indexable by this decoder.
func resolveImmOrOwnedArg(a chain.Argument, inputs []chain.CallArg) (chain.ObjectRef, bool) {
	ia, ok := a.(chain.InputArgument)
	if !ok || int(ia.Index) >= len(inputs) {
		return chain.ObjectRef{}, false
	}
	oca, ok := inputs[ia.Index].(chain.ObjectCallArg)
	if !ok {
		return chain.ObjectRef{}, false
	}
	imm, ok := oca.Arg.(chain.ImmOrOwnedObject)
	if !ok {
		return chain.ObjectRef{}, false
	}
	return imm.Ref, true
}
