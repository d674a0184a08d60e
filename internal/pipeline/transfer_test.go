package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suicapindexer/indexer/internal/chain"
	"github.com/suicapindexer/indexer/internal/store"
)

func transferCheckpoint(seq uint64, capID, preOwner, receiver [32]byte, capVersion uint64) *chain.Checkpoint {
	digest := addr(0xF3)
	ref := chain.ObjectRef{ObjectID: capID, Version: capVersion}
	return &chain.Checkpoint{
		Sequence:    seq,
		TimestampMs: 1_700_000_200_000,
		Transactions: []chain.Transaction{
			{
				Digest: digest,
				Kind: chain.ProgrammableTransaction{
					Inputs: []chain.CallArg{
						chain.ObjectCallArg{Arg: chain.ImmOrOwnedObject{Ref: ref}},
						chain.PureCallArg{Bytes: receiver[:]},
					},
					Commands: []chain.Command{
						chain.TransferObjectsCommand{
							Objects:  []chain.Argument{chain.InputArgument{Index: 0}},
							Receiver: chain.InputArgument{Index: 1},
						},
					},
				},
				Effects: chain.Effects{Status: chain.Status{OK: true}},
			},
		},
		Objects: map[chain.ObjectKey]chain.Object{
			{ObjectID: capID, Version: capVersion}: {
				ObjectID: capID,
				Version:  capVersion,
				Owner:    chain.Owner{Kind: chain.OwnerAddress, Address: preOwner},
				Data: chain.MoveData{
					TypeTag:  "0x2::package::UpgradeCap",
					Contents: upgradeCapContents(addr(0xDD), capVersion, 0),
				},
			},
		},
	}
}

func TestTransferHandlerTransferScenario(t *testing.T) {
	capID, preOwner, receiver := addr(0xAA), addr(0xCC), addr(0xEE)
	ckpt := transferCheckpoint(300, capID, preOwner, receiver, 2)

	h := &TransferHandler{}
	batch, err := h.Process(ckpt)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	tr := batch[0].(*store.CapTransfer)
	require.Equal(t, chain.HexAddress(capID), tr.ObjectID)
	require.Equal(t, chain.HexAddress(preOwner), tr.OldOwnerAddress)
	require.Equal(t, chain.HexAddress(receiver), tr.NewOwnerAddress)
	require.Equal(t, int64(300), tr.SeqCheckpoint)

	fc := &fakeCommitter{}
	require.NoError(t, h.Commit(context.Background(), fc, batch))
	require.Len(t, fc.transfers, 1)
}

func TestTransferHandlerDefaultsZeroAddressOnMalformedReceiver(t *testing.T) {
	capID, preOwner, receiver := addr(0xAA), addr(0xCC), addr(0xEE)
	ckpt := transferCheckpoint(300, capID, preOwner, receiver, 2)
	pt := ckpt.Transactions[0].Kind.(chain.ProgrammableTransaction)
	pt.Inputs[1] = chain.PureCallArg{Bytes: []byte{0x01}} // too short to be an address

	h := &TransferHandler{}
	batch, err := h.Process(ckpt)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, chain.ZeroAddressHex, batch[0].(*store.CapTransfer).NewOwnerAddress)
}

func TestTransferHandlerIgnoresNonUpgradeCapObjects(t *testing.T) {
	capID, preOwner, receiver := addr(0xAA), addr(0xCC), addr(0xEE)
	ckpt := transferCheckpoint(300, capID, preOwner, receiver, 2)
	obj := ckpt.Objects[chain.ObjectKey{ObjectID: capID, Version: 2}]
	obj.Data = chain.MoveData{TypeTag: "0x2::coin::Coin"}
	ckpt.Objects[chain.ObjectKey{ObjectID: capID, Version: 2}] = obj

	h := &TransferHandler{}
	batch, err := h.Process(ckpt)
	require.NoError(t, err)
	require.Empty(t, batch)
}
