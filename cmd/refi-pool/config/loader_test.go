package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefaults(t *testing.T) {
	cfg, err := load("", []string{t.TempDir()})
	require.NoError(t, err)

	require.Len(t, cfg.Networks, 1)
	eth := cfg.Networks[0]
	assert.Equal(t, uint64(1), eth.ID)
	assert.Equal(t, "Ethereum", eth.Name)
	assert.Equal(t, "homestead", eth.Network)
	assert.Equal(t, "ETH", eth.NativeCurrency.Symbol)
	assert.Equal(t, uint8(18), eth.NativeCurrency.Decimals)
	require.Len(t, eth.RPCs, 1)
	assert.Equal(t, "https://eth.llamarpc.com", eth.RPCs[0].URL)

	assert.True(t, cfg.App.AutoConnect)
	assert.Equal(t, "poolBalances", cfg.Pool.FunctionName)
	assert.Equal(t, "0x0000000000000000000000000000000000000000", cfg.Pool.ContractAddress)
	assert.Equal(t, 15*time.Second, cfg.Query.CacheTTL)
	assert.Equal(t, "127.0.0.1:6140", cfg.ListenAddr())
}

func TestLoadMergesFileFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`pool:
  contractAddress: "0x1111111111111111111111111111111111111111"
query:
  refetchInterval: 30s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := load("", []string{dir})
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Pool.ContractAddress)
	assert.Equal(t, 30*time.Second, cfg.Query.RefetchInterval)
	assert.Equal(t, "USDC", cfg.Pool.TokenSymbol, "untouched keys keep embedded values")
	assert.Len(t, cfg.Networks, 1)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REFI_POOL_SERVER_PORT", "7001")
	t.Setenv("REFI_POOL_SESSION_BACKEND", "memory")

	cfg, err := load("", []string{t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "7001", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Session.Backend)
}

func TestLoadExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  backend: redis\n"), 0o600))

	_, err := load(path, nil)
	assert.Error(t, err, "redis backend without address is rejected")

	_, err = load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
