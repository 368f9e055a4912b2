package registry

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/dex"
	"poolScope/internal/dex/stub"
	"poolScope/internal/model"
	"poolScope/internal/storage/memory"
)

var (
	lusd  = common.HexToAddress("0x93b346b6BC2548dA6A1E7d98E9a421B42541425b")
	usdc  = common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8")
	weth  = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	poolA = common.HexToAddress("0x4e0924d3a751be199c426d52fb1f2337fa96f736")
	poolB = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func newCaller(t *testing.T) *stub.Caller {
	t.Helper()
	erc20, err := dex.ERC20ABI()
	require.NoError(t, err)
	poolABI, err := dex.V3PoolABI()
	require.NoError(t, err)

	caller := stub.NewCaller()
	for _, tok := range []struct {
		addr     common.Address
		symbol   string
		decimals uint8
	}{
		{lusd, "LUSD", 18},
		{usdc, "USDC", 6},
		{weth, "WETH", 18},
	} {
		caller.Returns(tok.addr, erc20, "decimals", tok.decimals)
		caller.Returns(tok.addr, erc20, "symbol", tok.symbol)
		caller.Returns(tok.addr, erc20, "name", tok.symbol)
	}
	caller.Returns(poolA, poolABI, "token0", lusd)
	caller.Returns(poolA, poolABI, "token1", usdc)
	caller.Returns(poolB, poolABI, "token0", weth)
	caller.Returns(poolB, poolABI, "token1", usdc)
	return caller
}

func TestTokenFetchedOnce(t *testing.T) {
	caller := newCaller(t)
	store := memory.NewStore()
	reg := New(1, caller, store, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		token, err := reg.Token(ctx, usdc.Hex())
		require.NoError(t, err)
		assert.Equal(t, uint8(6), token.Decimals)
		assert.Equal(t, "USDC", token.Symbol)
		assert.Equal(t, uint64(1), token.ChainID)
	}
	assert.Equal(t, 1, caller.Calls(usdc, "decimals"))

	stored, ok, err := store.FindToken(ctx, 1, usdc.Hex())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "USDC", stored.Symbol)
}

func TestTokenReadFromRepository(t *testing.T) {
	caller := newCaller(t)
	store := memory.NewStore()
	require.NoError(t, store.SaveToken(context.Background(), model.Token{ChainID: 1, Address: weth.Hex(), Decimals: 18, Symbol: "WETH"}))

	token, err := New(1, caller, store, nil).Token(context.Background(), weth.Hex())
	require.NoError(t, err)
	assert.Equal(t, "WETH", token.Symbol)
	assert.Zero(t, caller.Total())
}

func TestPoolsCreatedInConfigOrder(t *testing.T) {
	caller := newCaller(t)
	store := memory.NewStore()
	reg := New(1, caller, store, nil)
	ctx := context.Background()

	count, err := reg.PoolCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	pools, err := reg.Pools(ctx, []model.PoolConfig{
		{Address: poolA.Hex(), Symbol: "UNI3-LUSD/USDC 0.05%"},
		{Address: poolB.Hex()},
	})
	require.NoError(t, err)
	require.Len(t, pools, 2)

	assert.Equal(t, "UNI3-LUSD/USDC 0.05%", pools[0].Symbol)
	assert.Equal(t, model.PoolKindV3, pools[0].Kind)
	require.Len(t, pools[0].Tokens, 2)
	assert.Equal(t, lusd.Hex(), pools[0].Tokens[0].Address)
	assert.Equal(t, usdc.Hex(), pools[0].Tokens[1].Address)
	assert.Equal(t, "WETH-USDC", pools[1].Symbol)

	count, err = reg.PoolCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// usdc is shared by both pools but resolved once
	assert.Equal(t, 1, caller.Calls(usdc, "decimals"))

	_, err = reg.Pools(ctx, []model.PoolConfig{{Address: poolA.Hex()}})
	require.NoError(t, err)
	assert.Equal(t, 1, caller.Calls(poolA, "token0"))
}

func TestPoolRejectsBadConfig(t *testing.T) {
	reg := New(1, newCaller(t), memory.NewStore(), nil)
	ctx := context.Background()

	_, err := reg.Pool(ctx, model.PoolConfig{Address: "not-an-address"})
	require.Error(t, err)
	_, err = reg.Pool(ctx, model.PoolConfig{Address: poolA.Hex(), Kind: "curve"})
	require.ErrorContains(t, err, "unsupported kind")
}

func TestPoolTokenFailureNotCached(t *testing.T) {
	caller := newCaller(t)
	reg := New(1, caller, memory.NewStore(), nil)
	unknown := common.HexToAddress("0x3333333333333333333333333333333333333333")

	_, err := reg.Pool(context.Background(), model.PoolConfig{Address: unknown.Hex()})
	require.Error(t, err)
	_, err = reg.Pool(context.Background(), model.PoolConfig{Address: unknown.Hex()})
	require.Error(t, err)
	assert.Equal(t, 2, caller.Total())
}
