package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/chain"
)

// Call runs a view method at the given height (nil means latest) and
// returns its unpacked outputs.
func Call(ctx context.Context, caller chain.Caller, contract common.Address, parsed abi.ABI, method string, height *big.Int, args ...interface{}) ([]interface{}, error) {
	return call(ctx, caller, ethereum.CallMsg{To: &contract}, parsed, method, height, args...)
}

// Simulate evaluates a state-changing method at the given height without
// broadcasting it. The quoter reports its result this way.
func Simulate(ctx context.Context, caller chain.Caller, contract common.Address, parsed abi.ABI, method string, height *big.Int, args ...interface{}) ([]interface{}, error) {
	msg := ethereum.CallMsg{
		From: common.Address{},
		To:   &contract,
		Gas:  simulateGas,
	}
	return call(ctx, caller, msg, parsed, method, height, args...)
}

const simulateGas = 5_000_000

func call(ctx context.Context, caller chain.Caller, msg ethereum.CallMsg, parsed abi.ABI, method string, height *big.Int, args ...interface{}) ([]interface{}, error) {
	if caller == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg.Data = data
	resp, err := caller.CallContract(ctx, msg, height)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}
