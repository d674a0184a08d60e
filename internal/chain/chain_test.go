package chain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteReaderPrimitives(t *testing.T) {
	data := []byte{0x01, 0x02, 0x00, 0x03, 0x00, 0x00, 0x00}
	r := NewByteReader(data)
	require.Equal(t, uint8(0x01), r.ReadU8())
	require.Equal(t, uint16(0x0002), r.ReadU16())
	require.Equal(t, uint32(0x00000003), r.ReadU32())
	require.True(t, r.Exhausted())
}

func TestByteReaderShortReadReturnsZero(t *testing.T) {
	r := NewByteReader([]byte{0x01})
	require.Equal(t, uint64(0), r.ReadU64())
	require.Nil(t, r.ReadFixed(32))
}

func TestByteReaderULEB128(t *testing.T) {
	// 300 encodes as 0xAC 0x02 in ULEB128.
	r := NewByteReader([]byte{0xAC, 0x02})
	require.Equal(t, uint64(300), r.ReadULEB128())
}

func TestOwnerString(t *testing.T) {
	addr, ok := ParseHexAddress("0xcc" + strings.Repeat("0", 62))
	require.True(t, ok)

	require.Equal(t, HexAddress(addr), Owner{Kind: OwnerAddress, Address: addr}.String())
	require.Equal(t, HexAddress(addr), Owner{Kind: OwnerObject, Address: addr}.String())
	require.Equal(t, HexAddress(addr), Owner{Kind: OwnerConsensusAddress, Address: addr}.String())
	require.Equal(t, "shared", Owner{Kind: OwnerShared}.String())
	require.Equal(t, "immutable", Owner{Kind: OwnerImmutable}.String())
}

func TestParseHexAddressRejectsMalformed(t *testing.T) {
	_, ok := ParseHexAddress("not-hex")
	require.False(t, ok)

	_, ok = ParseHexAddress("0xzz")
	require.False(t, ok)
}

func TestPolicyFromU8(t *testing.T) {
	cases := []struct {
		raw  uint8
		want Policy
		ok   bool
	}{
		{0, PolicyCompatible, true},
		{128, PolicyAdditive, true},
		{192, PolicyDepOnly, true},
		{7, PolicyCompatible, false},
	}
	for _, c := range cases {
		got, ok := PolicyFromU8(c.raw)
		require.Equal(t, c.want, got)
		require.Equal(t, c.ok, ok)
	}
}

func TestPolicyStringWireTokens(t *testing.T) {
	require.Equal(t, "compatible", PolicyCompatible.String())
	require.Equal(t, "additive", PolicyAdditive.String())
	require.Equal(t, "dep_only", PolicyDepOnly.String())
	require.Equal(t, "immutable", PolicyImmutable.String())
}

func TestIsUpgradeCapType(t *testing.T) {
	require.True(t, IsUpgradeCapType("0x2::package::UpgradeCap"))
	require.False(t, IsUpgradeCapType("0x2::coin::Coin"))
}

func TestIsCommitUpgradeCall(t *testing.T) {
	require.True(t, IsCommitUpgradeCall(MoveCallCommand{
		Package: FrameworkPackageID, Module: "package", Function: "commit_upgrade",
	}))
	require.False(t, IsCommitUpgradeCall(MoveCallCommand{
		Package: FrameworkPackageID, Module: "package", Function: "make_immutable",
	}))
}

func TestDecodeUpgradeCap(t *testing.T) {
	var contents []byte
	contents = append(contents, make([]byte, 32)...) // UID
	pkg := [32]byte{0xBB}
	contents = append(contents, pkg[:]...)
	contents = append(contents, 0x02, 0, 0, 0, 0, 0, 0, 0) // version = 2, LE u64
	contents = append(contents, 0x80)                      // policy = 128 (Additive)

	fields, ok := DecodeUpgradeCap(contents)
	require.True(t, ok)
	require.Equal(t, pkg, fields.PackageID)
	require.Equal(t, uint64(2), fields.Version)
	require.Equal(t, uint8(0x80), fields.PolicyRaw)
}

func TestDecodeUpgradeCapTooShort(t *testing.T) {
	_, ok := DecodeUpgradeCap(make([]byte, 40))
	require.False(t, ok)
}
