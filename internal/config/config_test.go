package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Uint64("from", 0, "")
	flags.Uint64("block-interval", 0, "")
	flags.StringSlice("pool", nil, "")
	flags.String("resolution", "", "")
	flags.String("network", "", "")
	flags.StringToString("feed", nil, "")
	require.NoError(t, flags.Parse(args))
	return flags
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "rpc: http://localhost:8545\n"), runFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "ethereum", cfg.Network)
	assert.Equal(t, uint64(200), cfg.BlockInterval)
	assert.Equal(t, "1h", cfg.Resolution)
	assert.Equal(t, time.Hour, cfg.Width)
	assert.Equal(t, []string{DefaultPool}, cfg.Pools)
	assert.True(t, cfg.CacheUnavailable)
	assert.Contains(t, cfg.Networks, "arbitrum-one")
	assert.Contains(t, cfg.Networks, "ethereum")
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "rpc: http://file:8545\nblock-interval: 50\n")
	flags := runFlags(t,
		"--rpc", "http://flag:8545",
		"--pool", "0x1111111111111111111111111111111111111111:v2:PAIR,0x2222222222222222222222222222222222222222",
		"--resolution", "1d",
	)

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "http://flag:8545", cfg.RPCURL)
	assert.Equal(t, uint64(50), cfg.BlockInterval)
	assert.Equal(t, 24*time.Hour, cfg.Width)
	assert.Equal(t, []string{
		"0x1111111111111111111111111111111111111111:v2:PAIR",
		"0x2222222222222222222222222222222222222222",
	}, cfg.Pools)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("INDEXER_RPC", "http://env:8545")
	t.Setenv("INDEXER_CACHE_UNAVAILABLE", "false")

	cfg, err := Load(writeConfig(t, "workers: 8\n"), runFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "http://env:8545", cfg.RPCURL)
	assert.False(t, cfg.CacheUnavailable)
	assert.Equal(t, 8, cfg.Workers)
}

func TestLoadStructuredPoolsAndNetworks(t *testing.T) {
	path := writeConfig(t, `
rpc: http://localhost:8545
network: Base Mainnet
pool:
  - address: "0x3333333333333333333333333333333333333333"
    kind: v2
    symbol: "AERO-WETH"
  - address: "0x4444444444444444444444444444444444444444"
networks:
  base-mainnet:
    chain-id: 8453
    feeds:
      "0x4200000000000000000000000000000000000006": "0x71041dddad3595F9CEd3DcCFBe3D1F4b0a16Bb70"
    pairs:
      "0x940181a94A35A4569E4529A3CDfB74e38FD98631":
        pair: "0x7f670f78B17dEC44d5Ef68a48740b6f8849cc2e6"
        invert: true
    reference: "0x4200000000000000000000000000000000000006"
`)
	cfg, err := Load(path, runFlags(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0x3333333333333333333333333333333333333333:v2:AERO-WETH",
		"0x4444444444444444444444444444444444444444",
	}, cfg.Pools)

	network, err := SelectNetwork(cfg.Networks, cfg.Network, 8453)
	require.NoError(t, err)
	assert.Equal(t, "base-mainnet", network.Name)
	route, ok := network.PairFor(common.HexToAddress("0x940181a94A35A4569E4529A3CDfB74e38FD98631"))
	require.True(t, ok)
	assert.True(t, route.Invert)
	assert.Equal(t, uint8(18), route.Decimals0)
	assert.False(t, network.HasQuoter())
}

func TestLoadRejectsBadNetwork(t *testing.T) {
	path := writeConfig(t, `
rpc: http://localhost:8545
networks:
  broken:
    feeds:
      "0xnot-an-address": "0x71041dddad3595F9CEd3DcCFBe3D1F4b0a16Bb70"
`)
	_, err := Load(path, runFlags(t))
	require.ErrorContains(t, err, "invalid feed token address")
}

func TestLoadFeedOverride(t *testing.T) {
	token := "0x5f98805A4E8be255a32880FDeC7F6728C6568bA0"
	feed := "0x3D7aE7E594f2f2091Ad8798313450130d0Aba3a0"
	flags := runFlags(t, "--rpc", "http://localhost:8545", "--feed", token+"="+feed)

	cfg, err := Load(writeConfig(t, ""), flags)
	require.NoError(t, err)
	got, ok := cfg.Networks["ethereum"].FeedFor(common.HexToAddress(token))
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress(feed), got)
}

func TestLoadRequiresRPC(t *testing.T) {
	_, err := Load(writeConfig(t, ""), runFlags(t))
	require.ErrorContains(t, err, "rpc is required")
}

func TestSelectNetwork(t *testing.T) {
	cfg, err := Load(writeConfig(t, "rpc: x\n"), runFlags(t))
	require.NoError(t, err)

	network, err := SelectNetwork(cfg.Networks, "", 42161)
	require.NoError(t, err)
	assert.Equal(t, "arbitrum-one", network.Name)

	_, err = SelectNetwork(cfg.Networks, "ethereum", 42161)
	require.ErrorContains(t, err, "rpc reports 42161")

	_, err = SelectNetwork(cfg.Networks, "solana", 0)
	require.ErrorContains(t, err, "unknown network")

	_, err = SelectNetwork(cfg.Networks, "", 10)
	require.Error(t, err)
}

func TestParseResolution(t *testing.T) {
	cases := map[string]time.Duration{
		"1h":  time.Hour,
		"15m": 15 * time.Minute,
		"1d":  24 * time.Hour,
		"2w":  14 * 24 * time.Hour,
	}
	for label, want := range cases {
		got, err := ParseResolution(label)
		require.NoError(t, err, label)
		assert.Equal(t, want, got, label)
	}

	for _, bad := range []string{"", "0d", "1.5s", "soon", "500ms"} {
		_, err := ParseResolution(bad)
		assert.Error(t, err, bad)
	}
}
