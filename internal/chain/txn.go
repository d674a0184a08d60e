package chain

// Argument is the closed sum of ways a command can reference a value:
// an entry in the transaction's input table, the gas coin, or the
// result of a prior command. Only Input is meaningful to this indexer's
// decoders; the others are represented so a total match stays possible.
type Argument interface{ isArgument() }

// InputArgument references inputs[Index].
type InputArgument struct{ Index uint16 }

func (InputArgument) isArgument() {}

// OtherArgument covers GasCoin, Result and NestedResult — arguments
// this indexer's decoders never need to resolve.
type OtherArgument struct{}

func (OtherArgument) isArgument() {}

// ObjectArg is the closed sum of ways a CallArg can reference an object.
type ObjectArg interface{ isObjectArg() }

// ImmOrOwnedObject identifies a specific version of an owned or
// immutable object by its object reference.
type ImmOrOwnedObject struct{ Ref ObjectRef }

func (ImmOrOwnedObject) isObjectArg() {}

// SharedObjectArg covers the shared-object input variant, which this
// indexer's decoders never resolve (upgrade capabilities are never
// passed as shared inputs in the flows this system indexes).
type SharedObjectArg struct{}

func (SharedObjectArg) isObjectArg() {}

// CallArg is the closed sum of transaction input kinds.
type CallArg interface{ isCallArg() }

// ObjectCallArg is an object-reference input.
type ObjectCallArg struct{ Arg ObjectArg }

func (ObjectCallArg) isCallArg() {}

// PureCallArg is a raw BCS-encoded scalar/bytes input.
type PureCallArg struct{ Bytes []byte }

func (PureCallArg) isCallArg() {}

// Command is the closed sum of programmable-transaction command kinds.
type Command interface{ isCommand() }

// PublishCommand publishes a new package; its exact argument shape is
// irrelevant to this indexer beyond its presence as a filter signal.
type PublishCommand struct{}

func (PublishCommand) isCommand() {}

// MoveCallCommand invokes an entry or public function of a published
// package.
type MoveCallCommand struct {
	Package   [32]byte
	Module    string
	Function  string
	Arguments []Argument
}

func (MoveCallCommand) isCommand() {}

// TransferObjectsCommand transfers a list of objects to a single
// receiving address.
type TransferObjectsCommand struct {
	Objects  []Argument
	Receiver Argument
}

func (TransferObjectsCommand) isCommand() {}

// OtherCommand covers SplitCoins, MergeCoins, MakeMoveVec and Upgrade —
// command kinds this indexer never needs to decode.
type OtherCommand struct{}

func (OtherCommand) isCommand() {}

// TransactionKind is the closed sum of transaction body kinds. Only the
// two programmable variants carry commands this indexer inspects.
type TransactionKind interface{ isTransactionKind() }

// ProgrammableTransaction is a user-submitted sequence of commands
// operating over an input table.
type ProgrammableTransaction struct {
	Inputs   []CallArg
	Commands []Command
}

func (ProgrammableTransaction) isTransactionKind() {}

// ProgrammableSystemTransaction is a system-submitted programmable
// transaction (e.g. end-of-epoch bookkeeping); it shares the same
// input/command shape as ProgrammableTransaction.
type ProgrammableSystemTransaction struct {
	Inputs   []CallArg
	Commands []Command
}

func (ProgrammableSystemTransaction) isTransactionKind() {}

// OtherTransactionKind covers consensus commit prologues, genesis, and
// other variants this indexer never inspects.
type OtherTransactionKind struct{}

func (OtherTransactionKind) isTransactionKind() {}

// Status is a transaction's execution outcome.
type Status struct {
	OK bool
}

// Effects is the observable outcome of executing a transaction.
type Effects struct {
	Status Status
	// Created lists object references minted by this transaction.
	Created []ObjectRef
	// MutatedExcludingGas lists object references mutated by this
	// transaction, with the gas-coin mutation already filtered out
	// (mirroring the source's effects.mutated_excluding_gas()).
	MutatedExcludingGas []ObjectRef
}

// Transaction is a single executed transaction within a checkpoint.
type Transaction struct {
	Digest  [32]byte
	Kind    TransactionKind
	Effects Effects
}

// Checkpoint is an ordered, finalized batch of transactions plus the
// full set of object versions touched within it.
type Checkpoint struct {
	Sequence     uint64
	TimestampMs  uint64
	Transactions []Transaction
	Objects      map[ObjectKey]Object
}

// AsProgrammable extracts the input table and command list from a
// TransactionKind if it is one of the two programmable variants; other
// variants (consensus commit prologue, genesis, ...) report ok=false.
func AsProgrammable(k TransactionKind) (inputs []CallArg, commands []Command, ok bool) {
	switch t := k.(type) {
	case ProgrammableTransaction:
		return t.Inputs, t.Commands, true
	case ProgrammableSystemTransaction:
		return t.Inputs, t.Commands, true
	default:
		return nil, nil, false
	}
}

// DigestHex renders a transaction digest as a 0x-prefixed hex string.
func DigestHex(d [32]byte) string { return HexAddress(d) }

// Object looks up an object by (object_id, version) within this
// checkpoint's object set.
func (c *Checkpoint) Object(ref ObjectRef) (Object, bool) {
	obj, ok := c.Objects[ObjectKey{ObjectID: ref.ObjectID, Version: ref.Version}]
	return obj, ok
}
