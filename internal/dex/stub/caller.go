package stub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ErrReverted is returned for calls with no registered handler.
var ErrReverted = errors.New("execution reverted")

// Handler answers one contract method. It receives the unpacked call
// arguments and the requested height and returns the method outputs.
type Handler func(args []interface{}, height *big.Int) ([]interface{}, error)

type route struct {
	contract common.Address
	method   abi.Method
	handler  Handler
}

// Caller implements chain.Caller for tests. It dispatches on contract
// address and method selector and counts every call it receives.
type Caller struct {
	mu     sync.Mutex
	routes []route
	calls  map[string]int
	total  int
}

// NewCaller creates an empty stub caller.
func NewCaller() *Caller {
	return &Caller{calls: make(map[string]int)}
}

// On registers a handler for contract.method.
func (c *Caller) On(contract common.Address, parsed abi.ABI, method string, handler Handler) {
	m, ok := parsed.Methods[method]
	if !ok {
		panic(fmt.Sprintf("stub: method %s not in abi", method))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = append(c.routes, route{contract: contract, method: m, handler: handler})
}

// Returns registers constant outputs for contract.method.
func (c *Caller) Returns(contract common.Address, parsed abi.ABI, method string, outputs ...interface{}) {
	c.On(contract, parsed, method, func([]interface{}, *big.Int) ([]interface{}, error) {
		return outputs, nil
	})
}

// Reverts registers a failing handler for contract.method.
func (c *Caller) Reverts(contract common.Address, parsed abi.ABI, method string) {
	c.On(contract, parsed, method, func([]interface{}, *big.Int) ([]interface{}, error) {
		return nil, ErrReverted
	})
}

// CallContract dispatches an eth_call to the registered handler.
func (c *Caller) CallContract(_ context.Context, msg ethereum.CallMsg, height *big.Int) ([]byte, error) {
	if msg.To == nil || len(msg.Data) < 4 {
		return nil, fmt.Errorf("stub: malformed call")
	}

	c.mu.Lock()
	c.total++
	var matched *route
	for i := range c.routes {
		r := &c.routes[i]
		if r.contract == *msg.To && bytes.Equal(r.method.ID, msg.Data[:4]) {
			matched = r
		}
	}
	if matched != nil {
		c.calls[callKey(*msg.To, matched.method.Name)]++
	}
	c.mu.Unlock()

	if matched == nil {
		return nil, ErrReverted
	}

	args, err := matched.method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("stub: unpack %s args: %w", matched.method.Name, err)
	}
	outputs, err := matched.handler(args, height)
	if err != nil {
		return nil, err
	}
	return matched.method.Outputs.Pack(outputs...)
}

// Calls returns how many times contract.method was called.
func (c *Caller) Calls(contract common.Address, method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[callKey(contract, method)]
}

// Total returns the number of calls received, including reverted ones.
func (c *Caller) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func callKey(contract common.Address, method string) string {
	return contract.Hex() + "." + method
}
