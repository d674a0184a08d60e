package chain

import "encoding/hex"

// OwnerKind enumerates the closed set of ownership tags an object can
// carry. Queryable structure beyond the collapsed string representation
// is deliberately not kept; a second tag column can be added later if a
// consumer needs it.
type OwnerKind uint8

const (
	OwnerAddress OwnerKind = iota
	OwnerObject
	OwnerShared
	OwnerImmutable
	OwnerConsensusAddress
)

// Owner is the ownership tag attached to an on-chain object.
type Owner struct {
	Kind    OwnerKind
	Address [32]byte // meaningful for OwnerAddress, OwnerObject, OwnerConsensusAddress
}

// ZeroAddress is the synthesized pre-transfer owner for a capability's
// creation event.
var ZeroAddress = Owner{Kind: OwnerAddress}

// ZeroAddressHex is the hex rendering of ZeroAddress.
var ZeroAddressHex = HexAddress(ZeroAddress.Address)

// String collapses the owner union to a single text value per the
// mapping: address-bearing variants render as hex, Shared/Immutable
// render as the literal sentinel strings.
func (o Owner) String() string {
	switch o.Kind {
	case OwnerShared:
		return "shared"
	case OwnerImmutable:
		return "immutable"
	default:
		return HexAddress(o.Address)
	}
}

// AddressFromBytes interprets a raw byte slice as a 32-byte address.
// ok is false if the slice isn't exactly 32 bytes long.
func AddressFromBytes(b []byte) (addr [32]byte, ok bool) {
	if len(b) != 32 {
		return addr, false
	}
	copy(addr[:], b)
	return addr, true
}

// HexAddress renders a 32-byte address as a lowercase 0x-prefixed hex string.
func HexAddress(a [32]byte) string {
	return "0x" + hex.EncodeToString(a[:])
}

// ParseHexAddress parses a 0x-prefixed 32-byte hex address. ok is false
// on any malformed input (wrong length, non-hex characters, missing
// prefix).
func ParseHexAddress(s string) (addr [32]byte, ok bool) {
	if len(s) != 66 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return addr, false
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil || len(b) != 32 {
		return addr, false
	}
	copy(addr[:], b)
	return addr, true
}
