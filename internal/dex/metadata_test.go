package dex

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"poolScope/internal/dex/stub"
	"poolScope/internal/model"
)

func TestFetchTokenMeta(t *testing.T) {
	erc20, err := ERC20ABI()
	require.NoError(t, err)

	token := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	caller := stub.NewCaller()
	caller.Returns(token, erc20, "decimals", uint8(6))
	caller.Returns(token, erc20, "symbol", "USDC")
	caller.Returns(token, erc20, "name", "USD Coin")

	meta, err := FetchTokenMeta(context.Background(), caller, token, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, uint8(6), meta.Decimals)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.Equal(t, "USD Coin", meta.Name)
	assert.Equal(t, token.Hex(), meta.Address)
}

func TestFetchTokenMetaBytes32Fallback(t *testing.T) {
	erc20, err := ERC20ABI()
	require.NoError(t, err)
	bytes32ABI, err := ERC20Bytes32ABI()
	require.NoError(t, err)

	token := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	var symbol [32]byte
	copy(symbol[:], "MKR")

	caller := stub.NewCaller()
	caller.Returns(token, erc20, "decimals", uint8(18))
	caller.Returns(token, bytes32ABI, "symbol", symbol)

	meta, err := FetchTokenMeta(context.Background(), caller, token, nil)
	require.NoError(t, err)
	assert.Equal(t, "MKR", meta.Symbol)
	assert.Equal(t, "", meta.Name)
}

func TestFetchTokenMetaRequiresDecimals(t *testing.T) {
	token := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	_, err := FetchTokenMeta(context.Background(), stub.NewCaller(), token, nil)
	require.Error(t, err)
}

func TestFetchV3State(t *testing.T) {
	poolABI, err := V3PoolABI()
	require.NoError(t, err)

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sqrt, _ := new(big.Int).SetString("79228162514264337593543950336", 10)

	caller := stub.NewCaller()
	caller.Returns(pool, poolABI, "liquidity", big.NewInt(5_000_000))
	caller.On(pool, poolABI, "slot0", func(_ []interface{}, height *big.Int) ([]interface{}, error) {
		assert.Equal(t, int64(1234), height.Int64())
		return []interface{}{sqrt, big.NewInt(-15), uint16(1), uint16(1), uint16(1), uint8(0), true}, nil
	})

	state, err := FetchV3State(context.Background(), caller, pool, big.NewInt(1234))
	require.NoError(t, err)
	assert.Equal(t, "5000000", state.TotalSupply.String())
	assert.Equal(t, sqrt.String(), state.SqrtPriceX96.String())
	require.NotNil(t, state.Tick)
	assert.Equal(t, int32(-15), *state.Tick)
	assert.Nil(t, state.Reserves)
}

func TestFetchV3StateReverts(t *testing.T) {
	poolABI, err := V3PoolABI()
	require.NoError(t, err)

	pool := common.HexToAddress("0x1111111111111111111111111111111111111111")
	caller := stub.NewCaller()
	caller.Returns(pool, poolABI, "liquidity", big.NewInt(1))
	caller.Reverts(pool, poolABI, "slot0")

	_, err = FetchV3State(context.Background(), caller, pool, big.NewInt(1))
	require.ErrorIs(t, err, stub.ErrReverted)
}

func TestFetchV2State(t *testing.T) {
	pairABI, err := V2PairABI()
	require.NoError(t, err)

	pair := common.HexToAddress("0x2222222222222222222222222222222222222222")
	caller := stub.NewCaller()
	caller.Returns(pair, pairABI, "totalSupply", big.NewInt(1000))
	caller.Returns(pair, pairABI, "getReserves", big.NewInt(300), big.NewInt(600), uint32(17))

	state, err := FetchV2State(context.Background(), caller, pair, big.NewInt(10))
	require.NoError(t, err)
	assert.Equal(t, "1000", state.TotalSupply.String())
	require.Len(t, state.Reserves, 2)
	assert.Equal(t, "300", state.Reserves[0].String())
	assert.Equal(t, "600", state.Reserves[1].String())
}

func TestFetchPoolTokens(t *testing.T) {
	pairABI, err := V2PairABI()
	require.NoError(t, err)

	pair := common.HexToAddress("0x2222222222222222222222222222222222222222")
	token0 := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	caller := stub.NewCaller()
	caller.Returns(pair, pairABI, "token0", token0)
	caller.Returns(pair, pairABI, "token1", token1)

	tokens, err := FetchPoolTokens(context.Background(), caller, pair, model.PoolKindV2)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{token0, token1}, tokens)

	_, err = FetchPoolTokens(context.Background(), caller, pair, model.PoolKind("curve"))
	require.Error(t, err)
}

func TestQuoteExactInputSingle(t *testing.T) {
	quoterABI, err := QuoterABI()
	require.NoError(t, err)

	quoter := common.HexToAddress("0x3333333333333333333333333333333333333333")
	tokenIn := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tokenOut := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	caller := stub.NewCaller()
	caller.On(quoter, quoterABI, "quoteExactInputSingle", func(args []interface{}, _ *big.Int) ([]interface{}, error) {
		require.Len(t, args, 5)
		assert.Equal(t, tokenIn, args[0])
		assert.Equal(t, tokenOut, args[1])
		assert.Equal(t, "500", args[2].(*big.Int).String())
		return []interface{}{big.NewInt(1_002_000)}, nil
	})

	out, err := QuoteExactInputSingle(context.Background(), caller, quoter, tokenIn, tokenOut, 500, big.NewInt(1), big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, "1002000", out.String())
}
