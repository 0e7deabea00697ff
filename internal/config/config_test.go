package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty directory so no config.* file is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func runFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Uint64("from", 0, "")
	flags.StringSlice("gateway", nil, "")
	flags.Uint64("batch-size", 2000, "")
	flags.Int("concurrency", 8, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2000), cfg.BatchSize)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, "./data/bridge.jsonl", cfg.Out)
	assert.True(t, cfg.CheckpointEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
	assert.Nil(t, cfg.Gateways)
}

func TestLoadEnvAndFlags(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BRIDGE_RPC", "http://env:8545")
	t.Setenv("BRIDGE_GATEWAY", "0xa3A7B6F88361F48403514059F1F16C8E78d60EeC, 0xcEe284F754E854890e311e3280b767F80797180d")
	t.Setenv("BRIDGE_L2_CHAIN_ID", "42170")
	t.Setenv("BRIDGE_PG_DSN", "postgres://bridge@localhost/bridge")

	flags := runFlags()
	require.NoError(t, flags.Parse([]string{"--rpc", "http://flag:8545", "--from", "100"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "http://flag:8545", cfg.RPCURL)
	assert.Equal(t, uint64(100), cfg.FromBlock)
	assert.Equal(t, uint64(42170), cfg.L2ChainID)
	assert.Equal(t, "postgres://bridge@localhost/bridge", cfg.PGDSN)
	assert.Equal(t, []string{
		"0xa3A7B6F88361F48403514059F1F16C8E78d60EeC",
		"0xcEe284F754E854890e311e3280b767F80797180d",
	}, cfg.Gateways)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
rpc: http://file:8545
gateway:
  - "0xa3A7B6F88361F48403514059F1F16C8E78d60EeC"
batch-size: 500
retry-backoff: 2s
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://file:8545", cfg.RPCURL)
	assert.Equal(t, []string{"0xa3A7B6F88361F48403514059F1F16C8E78d60EeC"}, cfg.Gateways)
	assert.Equal(t, uint64(500), cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff)

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.ErrorContains(t, err, "read config")
}

func TestLoadResolveAndAggregate(t *testing.T) {
	chdirTemp(t)
	t.Setenv("BRIDGE_TX", "0xabc")
	t.Setenv("BRIDGE_SKIP_ESCROW", "true")

	resolve, err := LoadResolve("", nil)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", resolve.TxHash)
	assert.Equal(t, "info", resolve.LogLevel)

	agg, err := LoadAggregate("", nil)
	require.NoError(t, err)
	assert.True(t, agg.SkipEscrow)
	assert.Equal(t, 1000, agg.BatchSize)
	assert.Equal(t, "./data/bridge.jsonl", agg.Input)
}

func TestSplitAndClean(t *testing.T) {
	assert.Nil(t, splitAndClean(""))
	assert.Equal(t, []string{"a", "b"}, splitAndClean(" a, ,b "))
}
