package donationpool

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedABI(t *testing.T) {
	parsed, err := ABI()
	require.NoError(t, err)

	method, ok := parsed.Methods[PoolBalancesMethod]
	require.True(t, ok)
	assert.Len(t, method.Outputs, 2)
	assert.NoError(t, RequireView(parsed, PoolBalancesMethod))

	assert.Error(t, RequireView(parsed, "donateETH"), "payable functions are not reads")
	assert.Error(t, RequireView(parsed, "withdraw"))

	packed, err := method.Outputs.Pack(big.NewInt(7), big.NewInt(9))
	require.NoError(t, err)
	out, err := parsed.Unpack(PoolBalancesMethod, packed)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(9), out[1].(*big.Int).Int64())
}

func TestParseBareArray(t *testing.T) {
	raw := []byte(`[{"inputs":[],"name":"poolBalances","outputs":[{"type":"uint256"},{"type":"uint256"}],"stateMutability":"view","type":"function"}]`)
	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Contains(t, parsed.Methods, PoolBalancesMethod)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte(`{"contractName":"DonationPool"}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DonationPool.json")
	require.NoError(t, os.WriteFile(path, artifactJSON, 0o600))

	parsed, err := LoadFile(path)
	require.NoError(t, err)
	assert.Contains(t, parsed.Methods, PoolBalancesMethod)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
