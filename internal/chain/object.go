package chain

// ObjectRef identifies a specific version of an object as observed in
// transaction effects: the triple (object_id, version, digest).
type ObjectRef struct {
	ObjectID [32]byte
	Version  uint64
	Digest   [32]byte
}

// ObjectKey indexes a checkpoint's object set.
type ObjectKey struct {
	ObjectID [32]byte
	Version  uint64
}

// ObjectData is the closed sum of an object's payload kinds. Only Move
// is relevant to this indexer; other variants (package bytecode, etc.)
// are represented but never decoded further.
type ObjectData interface{ isObjectData() }

// MoveData is a Move object's payload: a fully-qualified type tag and
// its BCS-encoded field contents.
type MoveData struct {
	TypeTag  string
	Contents []byte
}

func (MoveData) isObjectData() {}

// OtherData represents any non-Move object payload (package bytecode,
// etc.) that this indexer never inspects.
type OtherData struct{}

func (OtherData) isObjectData() {}

// Object is a single version of an on-chain object as stored in a
// checkpoint's object set.
type Object struct {
	ObjectID [32]byte
	Version  uint64
	Owner    Owner
	Data     ObjectData
}

// Key returns the (object_id, version) key this object is indexed under.
func (o Object) Key() ObjectKey {
	return ObjectKey{ObjectID: o.ObjectID, Version: o.Version}
}
