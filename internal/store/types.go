package store

import (
	"time"

	"github.com/suicapindexer/indexer/internal/chain"
)

// Cap is a row of the caps relation: one per upgrade capability ever
// observed, written exactly once at creation.
type Cap struct {
	ObjectID             string
	Policy               chain.Policy
	CreatedSeqCheckpoint int64
	CreatedTxDigest      string
	CreatedAt            time.Time
}

// CapVersion is a row of the cap_versions relation: one per
// commit_upgrade call, plus a synthesized version=1 row at creation.
type CapVersion struct {
	ObjectID      string
	PackageID     string
	Version       int64
	SeqCheckpoint int64
	TxDigest      string
	Publisher     string
	Timestamp     time.Time
	// Policy is the upgrade policy observed on the capability at the time
	// this version was minted.
	Policy chain.Policy
}

// policyFromWireToken maps a stored lower-snake policy token back to its
// Policy variant. Defaults to Compatible on an unrecognized token, since
// the enum column constrains values at write time.
func policyFromWireToken(token string) chain.Policy {
	switch token {
	case "additive":
		return chain.PolicyAdditive
	case "dep_only":
		return chain.PolicyDepOnly
	case "immutable":
		return chain.PolicyImmutable
	default:
		return chain.PolicyCompatible
	}
}

// CapTransfer is a row of the cap_transfers relation: one per
// TransferObjects operand referencing an upgrade capability, plus a
// synthesized old=ZERO row at creation.
type CapTransfer struct {
	ObjectID        string
	OldOwnerAddress string
	NewOwnerAddress string
	SeqCheckpoint   int64
	TxDigest        string
	Timestamp       time.Time
}
