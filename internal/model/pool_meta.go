package model

import "math/big"

// PoolState holds the raw on-chain state of a pool at one height. Fields
// not exposed by the pool's kind stay nil.
type PoolState struct {
	// Liquidity for v3 pools, LP token supply for v2 pairs.
	TotalSupply  *big.Int
	SqrtPriceX96 *big.Int
	Tick         *int32
	Reserves     []*big.Int
}
