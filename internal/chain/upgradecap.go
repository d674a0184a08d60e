package chain

import "strings"

// FrameworkPackageID is the Sui framework's well-known package id (0x2),
// padded to 32 bytes.
var FrameworkPackageID = func() [32]byte {
	var id [32]byte
	id[31] = 0x02
	return id
}()

// UpgradeCapTypeSuffix is the Move type tag suffix identifying an
// upgrade capability object, regardless of which address renders the
// framework package id (genesis builds sometimes use an alternate
// well-known alias).
const UpgradeCapTypeSuffix = "::package::UpgradeCap"

// CommitUpgradeModule and CommitUpgradeFunction identify the framework
// entry point that mints a new package version for a capability.
const (
	CommitUpgradeModule   = "package"
	CommitUpgradeFunction = "commit_upgrade"
)

// IsUpgradeCapType reports whether a Move type tag names the upgrade
// capability type.
func IsUpgradeCapType(typeTag string) bool {
	return strings.HasSuffix(typeTag, UpgradeCapTypeSuffix)
}

// IsCommitUpgradeCall reports whether a MoveCallCommand targets the
// framework's package::commit_upgrade entry point.
func IsCommitUpgradeCall(c MoveCallCommand) bool {
	return c.Package == FrameworkPackageID &&
		c.Module == CommitUpgradeModule &&
		c.Function == CommitUpgradeFunction
}

// UpgradeCapFields is the decoded subset of an UpgradeCap Move object's
// fields this indexer persists.
type UpgradeCapFields struct {
	PackageID [32]byte
	Version   uint64
	PolicyRaw uint8
}

// DecodeUpgradeCap decodes an UpgradeCap object's BCS-encoded contents.
// The on-wire layout is UID (32 bytes, the capability's own object id,
// skipped here since the caller already has it from the object
// envelope) followed by package: ID (32 bytes), version: u64, policy: u8.
// ok is false if the payload is too short to contain all three fields —
// the caller should log and skip such an object rather than treat it as
// a silent decode miss.
func DecodeUpgradeCap(contents []byte) (fields UpgradeCapFields, ok bool) {
	r := NewByteReader(contents)
	r.ReadFixed(32) // the capability's own UID, already known to the caller
	pkg := r.ReadFixed(32)
	if pkg == nil {
		return fields, false
	}
	copy(fields.PackageID[:], pkg)
	if r.Remaining() < 9 {
		return fields, false
	}
	fields.Version = r.ReadU64()
	fields.PolicyRaw = r.ReadU8()
	return fields, true
}
