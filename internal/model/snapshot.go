package model

import "time"

// Snapshot is the state of one pool at one aligned time bucket.
type Snapshot struct {
	ID          string    `json:"id"`
	ChainID     uint64    `json:"chain_id"`
	PoolAddress string    `json:"pool_address"`
	PoolSymbol  string    `json:"pool_symbol"`
	Resolution  string    `json:"res"`
	Timestamp   uint64    `json:"timestamp"`
	Block       uint64    `json:"block"`
	TotalSupply float64   `json:"total_supply"`
	Prices      []float64 `json:"prices"`

	// concentrated-liquidity pools
	SqrtPriceX96 string `json:"sqrt_price_x96,omitempty"`
	Tick         *int32 `json:"tick,omitempty"`

	// Token balances held by the pool, human-scaled, in token order. For
	// constant-product pairs these are the pair reserves.
	Reserves []float64 `json:"reserves,omitempty"`
	// USD value of Reserves; nil when the balances could not be read.
	TVL *float64 `json:"tvl_usd,omitempty"`

	// constant-product pools
	LPPrice *float64 `json:"lp_price,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
