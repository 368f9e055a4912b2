package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolScope/internal/chain"
	"poolScope/internal/model"
)

// FetchTokenMeta loads token metadata via ERC20 calls. Decimals are
// required; symbol and name fall back to bytes32 and then to empty.
func FetchTokenMeta(ctx context.Context, caller chain.Caller, token common.Address, logger *zap.Logger) (model.Token, error) {
	meta := model.Token{Address: token.Hex()}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}
	bytes32ABI, err := ERC20Bytes32ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := Call(ctx, caller, token, stringABI, "decimals", nil)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}
	meta.Decimals = decimals

	meta.Symbol = fetchText(ctx, caller, token, "symbol", stringABI, bytes32ABI, logger)
	meta.Name = fetchText(ctx, caller, token, "name", stringABI, bytes32ABI, logger)
	return meta, nil
}

func fetchText(ctx context.Context, caller chain.Caller, token common.Address, method string, stringABI, bytes32ABI abi.ABI, logger *zap.Logger) string {
	if values, err := Call(ctx, caller, token, stringABI, method, nil); err == nil {
		if text, ok := values[0].(string); ok {
			return text
		}
	}
	values, err := Call(ctx, caller, token, bytes32ABI, method, nil)
	if err == nil {
		if text, ok := bytes32ToString(values[0]); ok {
			return text
		}
	}
	logger.Debug(method+" call failed", zap.String("token", token.Hex()), zap.Error(err))
	return ""
}

// FetchPoolTokens returns token0 and token1 of a pool or pair; both kinds
// expose the same getters.
func FetchPoolTokens(ctx context.Context, caller chain.Caller, pool common.Address, kind model.PoolKind) ([]common.Address, error) {
	parsed, err := poolABI(kind)
	if err != nil {
		return nil, err
	}

	tokens := make([]common.Address, 0, 2)
	for _, method := range []string{"token0", "token1"} {
		values, err := Call(ctx, caller, pool, parsed, method, nil)
		if err != nil {
			return nil, err
		}
		addr, err := asAddress(values[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		tokens = append(tokens, addr)
	}
	return tokens, nil
}

// FetchV3State reads liquidity and slot0 of a concentrated-liquidity pool
// at a height.
func FetchV3State(ctx context.Context, caller chain.Caller, pool common.Address, height *big.Int) (model.PoolState, error) {
	parsed, err := V3PoolABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := Call(ctx, caller, pool, parsed, "liquidity", height)
	if err != nil {
		return model.PoolState{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("liquidity: %w", err)
	}

	values, err = Call(ctx, caller, pool, parsed, "slot0", height)
	if err != nil {
		return model.PoolState{}, err
	}
	if len(values) < 2 {
		return model.PoolState{}, fmt.Errorf("slot0 returned %d values", len(values))
	}
	sqrtPrice, err := asBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("sqrt price: %w", err)
	}
	tickInt, err := asBigInt(values[1])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("tick: %w", err)
	}
	tick, err := int24FromBig(tickInt)
	if err != nil {
		return model.PoolState{}, fmt.Errorf("tick: %w", err)
	}

	return model.PoolState{
		TotalSupply:  liquidity,
		SqrtPriceX96: sqrtPrice,
		Tick:         &tick,
	}, nil
}

// FetchV2State reads LP supply and reserves of a constant-product pair at
// a height.
func FetchV2State(ctx context.Context, caller chain.Caller, pair common.Address, height *big.Int) (model.PoolState, error) {
	parsed, err := V2PairABI()
	if err != nil {
		return model.PoolState{}, fmt.Errorf("parse pair abi: %w", err)
	}

	values, err := Call(ctx, caller, pair, parsed, "totalSupply", height)
	if err != nil {
		return model.PoolState{}, err
	}
	supply, err := asBigInt(values[0])
	if err != nil {
		return model.PoolState{}, fmt.Errorf("total supply: %w", err)
	}

	reserve0, reserve1, err := FetchReserves(ctx, caller, pair, height)
	if err != nil {
		return model.PoolState{}, err
	}

	return model.PoolState{
		TotalSupply: supply,
		Reserves:    []*big.Int{reserve0, reserve1},
	}, nil
}

// FetchReserves reads getReserves of a constant-product pair at a height.
func FetchReserves(ctx context.Context, caller chain.Caller, pair common.Address, height *big.Int) (*big.Int, *big.Int, error) {
	parsed, err := V2PairABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := Call(ctx, caller, pair, parsed, "getReserves", height)
	if err != nil {
		return nil, nil, err
	}
	if len(values) < 2 {
		return nil, nil, fmt.Errorf("getReserves returned %d values", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return nil, nil, fmt.Errorf("reserve1: %w", err)
	}
	return reserve0, reserve1, nil
}

// FetchBalances reads balanceOf(owner) for every token at a height, in
// token order.
func FetchBalances(ctx context.Context, caller chain.Caller, tokens []common.Address, owner common.Address, height *big.Int) ([]*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	balances := make([]*big.Int, 0, len(tokens))
	for _, token := range tokens {
		values, err := Call(ctx, caller, token, parsed, "balanceOf", height, owner)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", token.Hex(), err)
		}
		balance, err := asBigInt(values[0])
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", token.Hex(), err)
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

// FetchLatestAnswer reads latestAnswer of a price-feed aggregator.
func FetchLatestAnswer(ctx context.Context, caller chain.Caller, feed common.Address, height *big.Int) (*big.Int, error) {
	parsed, err := AggregatorABI()
	if err != nil {
		return nil, fmt.Errorf("parse aggregator abi: %w", err)
	}
	values, err := Call(ctx, caller, feed, parsed, "latestAnswer", height)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// QuoteExactInputSingle simulates a single-hop swap through the quoter and
// returns the output amount in raw units of tokenOut.
func QuoteExactInputSingle(ctx context.Context, caller chain.Caller, quoter, tokenIn, tokenOut common.Address, fee uint32, amountIn *big.Int, height *big.Int) (*big.Int, error) {
	parsed, err := QuoterABI()
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}
	values, err := Simulate(ctx, caller, quoter, parsed, "quoteExactInputSingle", height,
		tokenIn, tokenOut, new(big.Int).SetUint64(uint64(fee)), amountIn, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

func poolABI(kind model.PoolKind) (abi.ABI, error) {
	switch kind {
	case model.PoolKindV2:
		return V2PairABI()
	case model.PoolKindV3, "":
		return V3PoolABI()
	default:
		return abi.ABI{}, fmt.Errorf("unsupported pool kind %q", kind)
	}
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 overflow: %s", v.String())
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
