package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/suicapindexer/indexer/internal/chain"
)

func TestConfigValidateRequiresDatabaseURL(t *testing.T) {
	require.Error(t, Config{}.Validate())
	require.NoError(t, Config{DatabaseURL: "postgres://localhost/test"}.Validate())
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://localhost/test"}.withDefaults()
	require.Equal(t, int32(10), cfg.MaxConns)
	require.Equal(t, int32(2), cfg.MinConns)
}

func TestPolicyFromWireTokenRoundTrip(t *testing.T) {
	for _, p := range []chain.Policy{chain.PolicyCompatible, chain.PolicyAdditive, chain.PolicyDepOnly, chain.PolicyImmutable} {
		require.Equal(t, p, policyFromWireToken(p.String()))
	}
}

func TestPolicyFromWireTokenUnknownDefaultsCompatible(t *testing.T) {
	require.Equal(t, chain.PolicyCompatible, policyFromWireToken("garbage"))
}
