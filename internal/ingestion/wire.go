package ingestion

import (
	"encoding/hex"
	"fmt"

	"github.com/suicapindexer/indexer/internal/chain"
)

// checkpointWire is the JSON envelope polled from REMOTE_STORE_URL. The
// real Sui checkpoint-streaming transport is out of scope for this
// repository; this wire format is this indexer's own minimal,
// inspectable stand-in for it, shaped directly after chain.Checkpoint so
// decodeWire is a straight field-by-field translation rather than a
// second model.
type checkpointWire struct {
	SequenceNumber uint64              `json:"sequence_number"`
	TimestampMs    uint64              `json:"timestamp_ms"`
	Transactions   []transactionWire   `json:"transactions"`
	Objects        []objectWire        `json:"objects"`
}

type transactionWire struct {
	Digest  string      `json:"digest"`
	Kind    kindWire    `json:"kind"`
	Effects effectsWire `json:"effects"`
}

type kindWire struct {
	Type     string       `json:"type"` // "programmable" | "programmable_system" | "other"
	Inputs   []callArgWire `json:"inputs"`
	Commands []commandWire `json:"commands"`
}

type effectsWire struct {
	Status              bool           `json:"status"`
	Created             []objectRefWire `json:"created"`
	MutatedExcludingGas []objectRefWire `json:"mutated_excluding_gas"`
}

type objectRefWire struct {
	ObjectID string `json:"object_id"`
	Version  uint64 `json:"version"`
	Digest   string `json:"digest"`
}

type callArgWire struct {
	Type   string        `json:"type"` // "object" | "pure"
	Object *objectArgWire `json:"object,omitempty"`
	Bytes  string        `json:"bytes,omitempty"` // hex-encoded, for "pure"
}

type objectArgWire struct {
	Type     string `json:"type"` // "imm_or_owned" | "shared"
	ObjectID string `json:"object_id,omitempty"`
	Version  uint64 `json:"version,omitempty"`
	Digest   string `json:"digest,omitempty"`
}

type argumentWire struct {
	Type  string `json:"type"` // "input" | "other"
	Index uint16 `json:"index,omitempty"`
}

type commandWire struct {
	Type      string         `json:"type"` // "publish" | "move_call" | "transfer_objects" | "other"
	Package   string         `json:"package,omitempty"`
	Module    string         `json:"module,omitempty"`
	Function  string         `json:"function,omitempty"`
	Arguments []argumentWire `json:"arguments,omitempty"`
	Objects   []argumentWire `json:"objects,omitempty"`
	Receiver  *argumentWire  `json:"receiver,omitempty"`
}

type objectWire struct {
	ObjectID string     `json:"object_id"`
	Version  uint64     `json:"version"`
	Owner    ownerWire  `json:"owner"`
	Data     dataWire   `json:"data"`
}

type ownerWire struct {
	Type    string `json:"type"` // "address_owner" | "object_owner" | "consensus_address_owner" | "shared" | "immutable"
	Address string `json:"address,omitempty"`
}

type dataWire struct {
	Type     string `json:"type"` // "move" | "other"
	TypeTag  string `json:"type_tag,omitempty"`
	Contents string `json:"contents,omitempty"` // hex-encoded BCS bytes
}

// decodeWire translates the polled JSON envelope into the chain package's
// in-memory checkpoint representation. Every union field is decoded
// through an explicit, total switch, and an unrecognized wire tag never
// errors: an unknown transaction kind, command, argument or object-data
// tag becomes the corresponding "Other*" variant, an unknown owner tag
// becomes Immutable, an unknown call-arg tag becomes an empty
// PureCallArg, and an object arg that is not a well-formed imm_or_owned
// reference becomes SharedObjectArg. Malformed object ids, transaction
// and effect digests, owner addresses and Move contents are errors.
func decodeWire(w checkpointWire) (*chain.Checkpoint, error) {
	ckpt := &chain.Checkpoint{
		Sequence:    w.SequenceNumber,
		TimestampMs: w.TimestampMs,
		Objects:     make(map[chain.ObjectKey]chain.Object, len(w.Objects)),
	}

	for _, ow := range w.Objects {
		obj, err := decodeObject(ow)
		if err != nil {
			return nil, fmt.Errorf("decode object %s: %w", ow.ObjectID, err)
		}
		ckpt.Objects[obj.Key()] = obj
	}

	ckpt.Transactions = make([]chain.Transaction, 0, len(w.Transactions))
	for _, tw := range w.Transactions {
		tx, err := decodeTransaction(tw)
		if err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", tw.Digest, err)
		}
		ckpt.Transactions = append(ckpt.Transactions, tx)
	}
	return ckpt, nil
}

func decodeTransaction(tw transactionWire) (chain.Transaction, error) {
	digest, ok := chain.ParseHexAddress(tw.Digest)
	if !ok {
		return chain.Transaction{}, fmt.Errorf("malformed digest %q", tw.Digest)
	}

	var kind chain.TransactionKind
	switch tw.Kind.Type {
	case "programmable", "programmable_system":
		inputs := make([]chain.CallArg, 0, len(tw.Kind.Inputs))
		for _, iw := range tw.Kind.Inputs {
			inputs = append(inputs, decodeCallArg(iw))
		}
		commands := make([]chain.Command, 0, len(tw.Kind.Commands))
		for _, cw := range tw.Kind.Commands {
			commands = append(commands, decodeCommand(cw))
		}
		if tw.Kind.Type == "programmable" {
			kind = chain.ProgrammableTransaction{Inputs: inputs, Commands: commands}
		} else {
			kind = chain.ProgrammableSystemTransaction{Inputs: inputs, Commands: commands}
		}
	default:
		kind = chain.OtherTransactionKind{}
	}

	created, err := decodeObjectRefs(tw.Effects.Created)
	if err != nil {
		return chain.Transaction{}, err
	}
	mutated, err := decodeObjectRefs(tw.Effects.MutatedExcludingGas)
	if err != nil {
		return chain.Transaction{}, err
	}

	return chain.Transaction{
		Digest: digest,
		Kind:   kind,
		Effects: chain.Effects{
			Status:              chain.Status{OK: tw.Effects.Status},
			Created:             created,
			MutatedExcludingGas: mutated,
		},
	}, nil
}

func decodeObjectRefs(refs []objectRefWire) ([]chain.ObjectRef, error) {
	out := make([]chain.ObjectRef, 0, len(refs))
	for _, r := range refs {
		ref, err := decodeObjectRef(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, nil
}

func decodeObjectRef(r objectRefWire) (chain.ObjectRef, error) {
	id, ok := chain.ParseHexAddress(r.ObjectID)
	if !ok {
		return chain.ObjectRef{}, fmt.Errorf("malformed object id %q", r.ObjectID)
	}
	var digest [32]byte
	if r.Digest != "" {
		d, ok := chain.ParseHexAddress(r.Digest)
		if !ok {
			return chain.ObjectRef{}, fmt.Errorf("malformed object digest %q", r.Digest)
		}
		digest = d
	}
	return chain.ObjectRef{ObjectID: id, Version: r.Version, Digest: digest}, nil
}

func decodeCallArg(w callArgWire) chain.CallArg {
	switch w.Type {
	case "object":
		if w.Object == nil {
			return chain.ObjectCallArg{Arg: chain.SharedObjectArg{}}
		}
		switch w.Object.Type {
		case "imm_or_owned":
			id, ok := chain.ParseHexAddress(w.Object.ObjectID)
			if !ok {
				return chain.ObjectCallArg{Arg: chain.SharedObjectArg{}}
			}
			var digest [32]byte
			if w.Object.Digest != "" {
				if d, ok := chain.ParseHexAddress(w.Object.Digest); ok {
					digest = d
				}
			}
			return chain.ObjectCallArg{Arg: chain.ImmOrOwnedObject{Ref: chain.ObjectRef{
				ObjectID: id, Version: w.Object.Version, Digest: digest,
			}}}
		default:
			return chain.ObjectCallArg{Arg: chain.SharedObjectArg{}}
		}
	case "pure":
		b, err := hex.DecodeString(trimHexPrefix(w.Bytes))
		if err != nil {
			b = nil
		}
		return chain.PureCallArg{Bytes: b}
	default:
		return chain.PureCallArg{}
	}
}

func decodeArgument(w argumentWire) chain.Argument {
	if w.Type == "input" {
		return chain.InputArgument{Index: w.Index}
	}
	return chain.OtherArgument{}
}

func decodeCommand(w commandWire) chain.Command {
	switch w.Type {
	case "publish":
		return chain.PublishCommand{}
	case "move_call":
		pkg, _ := chain.ParseHexAddress(w.Package)
		args := make([]chain.Argument, 0, len(w.Arguments))
		for _, a := range w.Arguments {
			args = append(args, decodeArgument(a))
		}
		return chain.MoveCallCommand{Package: pkg, Module: w.Module, Function: w.Function, Arguments: args}
	case "transfer_objects":
		objs := make([]chain.Argument, 0, len(w.Objects))
		for _, o := range w.Objects {
			objs = append(objs, decodeArgument(o))
		}
		receiver := chain.Argument(chain.OtherArgument{})
		if w.Receiver != nil {
			receiver = decodeArgument(*w.Receiver)
		}
		return chain.TransferObjectsCommand{Objects: objs, Receiver: receiver}
	default:
		return chain.OtherCommand{}
	}
}

func decodeObject(w objectWire) (chain.Object, error) {
	id, ok := chain.ParseHexAddress(w.ObjectID)
	if !ok {
		return chain.Object{}, fmt.Errorf("malformed object id %q", w.ObjectID)
	}

	var owner chain.Owner
	switch w.Owner.Type {
	case "address_owner", "object_owner", "consensus_address_owner":
		addr, ok := chain.ParseHexAddress(w.Owner.Address)
		if !ok {
			return chain.Object{}, fmt.Errorf("malformed owner address %q", w.Owner.Address)
		}
		kind := chain.OwnerAddress
		if w.Owner.Type == "object_owner" {
			kind = chain.OwnerObject
		} else if w.Owner.Type == "consensus_address_owner" {
			kind = chain.OwnerConsensusAddress
		}
		owner = chain.Owner{Kind: kind, Address: addr}
	case "shared":
		owner = chain.Owner{Kind: chain.OwnerShared}
	case "immutable":
		owner = chain.Owner{Kind: chain.OwnerImmutable}
	default:
		owner = chain.Owner{Kind: chain.OwnerImmutable}
	}

	var data chain.ObjectData
	switch w.Data.Type {
	case "move":
		contents, err := hex.DecodeString(trimHexPrefix(w.Data.Contents))
		if err != nil {
			return chain.Object{}, fmt.Errorf("malformed move contents: %w", err)
		}
		data = chain.MoveData{TypeTag: w.Data.TypeTag, Contents: contents}
	default:
		data = chain.OtherData{}
	}

	return chain.Object{ObjectID: id, Version: w.Version, Owner: owner, Data: data}, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
