package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/suicapindexer/indexer/internal/chain"
	"github.com/suicapindexer/indexer/internal/store"
)

// CreationGroup is the Created handler's per-capability output: the
// Cap row plus its synthesized initial CapVersion and CapTransfer,
// committed together in one transaction.
type CreationGroup struct {
	Cap      store.Cap
	Version  store.CapVersion
	Transfer store.CapTransfer
}

// CreatedHandler detects package-publication transactions and emits one
// CreationGroup per newly minted upgrade capability.
type CreatedHandler struct {
	Log *slog.Logger
}

func (h *CreatedHandler) Name() string { return "created" }

func (h *CreatedHandler) Process(ckpt *chain.Checkpoint) ([]any, error) {
	var out []any
	ts := time.UnixMilli(int64(ckpt.TimestampMs)).UTC()

	for _, tx := range ckpt.Transactions {
		if !tx.Effects.Status.OK {
			continue
		}
		_, commands, ok := chain.AsProgrammable(tx.Kind)
		if !ok {
			continue
		}
		if !containsPublish(commands) {
			continue
		}

		digest := chain.DigestHex(tx.Digest)
		for _, ref := range tx.Effects.Created {
			obj, fields, ok := resolveUpgradeCap(ckpt, ref, h.Log)
			if !ok {
				continue
			}

			objectID := chain.HexAddress(obj.ObjectID)
			owner := obj.Owner.String()

			out = append(out, &CreationGroup{
				Cap: store.Cap{
					ObjectID:             objectID,
					Policy:               chain.PolicyCompatible, // always Compatible at creation
					CreatedSeqCheckpoint: int64(ckpt.Sequence),
					CreatedTxDigest:      digest,
					CreatedAt:            ts,
				},
				Version: store.CapVersion{
					ObjectID:      objectID,
					PackageID:     chain.HexAddress(fields.PackageID),
					Version:       1,
					SeqCheckpoint: int64(ckpt.Sequence),
					TxDigest:      digest,
					Publisher:     owner,
					Timestamp:     ts,
					Policy:        chain.PolicyCompatible,
				},
				Transfer: store.CapTransfer{
					ObjectID:        objectID,
					OldOwnerAddress: chain.ZeroAddressHex,
					NewOwnerAddress: owner,
					SeqCheckpoint:   int64(ckpt.Sequence),
					TxDigest:        digest,
					Timestamp:       ts,
				},
			})
		}
	}
	return out, nil
}

func (h *CreatedHandler) Commit(ctx context.Context, c Committer, batch []any) error {
	caps := make([]store.Cap, 0, len(batch))
	versions := make([]store.CapVersion, 0, len(batch))
	transfers := make([]store.CapTransfer, 0, len(batch))
	for _, v := range batch {
		g := v.(*CreationGroup)
		caps = append(caps, g.Cap)
		versions = append(versions, g.Version)
		transfers = append(transfers, g.Transfer)
	}
	return c.CommitCreations(ctx, caps, versions, transfers)
}

func containsPublish(commands []chain.Command) bool {
	for _, c := range commands {
		if _, ok := c.(chain.PublishCommand); ok {
			return true
		}
	}
	return false
}
