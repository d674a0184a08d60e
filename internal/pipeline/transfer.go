package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/suicapindexer/indexer/internal/chain"
	"github.com/suicapindexer/indexer/internal/store"
)

// TransferHandler detects TransferObjects commands whose operands
// include an upgrade capability and emits one CapTransfer per such
// operand.
type TransferHandler struct {
	Log *slog.Logger
}

func (h *TransferHandler) Name() string { return "transfer" }

func (h *TransferHandler) Process(ckpt *chain.Checkpoint) ([]any, error) {
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
			toc, ok := cmd.(chain.TransferObjectsCommand)
			if !ok {
				continue
			}

			receiver := resolveReceiver(toc.Receiver, inputs)

			// Rows are produced in object-list order.
			for _, objArg := range toc.Objects {
				ref, ok := resolveImmOrOwnedArg(objArg, inputs)
				if !ok {
					continue
				}
				obj, _, ok := resolveUpgradeCap(ckpt, ref, h.Log)
				if !ok {
					continue
				}

				out = append(out, &store.CapTransfer{
					ObjectID:        chain.HexAddress(obj.ObjectID),
					OldOwnerAddress: obj.Owner.String(),
					NewOwnerAddress: receiver,
					SeqCheckpoint:   int64(ckpt.Sequence),
					TxDigest:        digest,
					Timestamp:       ts,
				})
			}
		}
	}
	return out, nil
}

func (h *TransferHandler) Commit(ctx context.Context, c Committer, batch []any) error {
	transfers := make([]store.CapTransfer, 0, len(batch))
	for _, v := range batch {
		transfers = append(transfers, *v.(*store.CapTransfer))
	}
	return c.CommitTransfers(ctx, transfers)
}

// resolveReceiver decodes the TransferObjects receiver argument. It
// defaults to the zero address on any shape mismatch or decode failure,
// never propagating an error: an unresolvable receiver is a decode
// miss, not an invariant violation.
func resolveReceiver(receiver chain.Argument, inputs []chain.CallArg) string {
	ia, ok := receiver.(chain.InputArgument)
	if !ok || int(ia.Index) >= len(inputs) {
		return chain.ZeroAddressHex
	}
	pure, ok := inputs[ia.Index].(chain.PureCallArg)
	if !ok {
		return chain.ZeroAddressHex
	}
	addr, ok := chain.AddressFromBytes(pure.Bytes)
	if !ok {
		return chain.ZeroAddressHex
	}
	return chain.HexAddress(addr)
}
