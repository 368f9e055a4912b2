package model

import "strings"

// PoolKind selects how a pool's state is read.
type PoolKind string

const (
	// PoolKindV3 is a concentrated-liquidity pool (liquidity, slot0).
	PoolKindV3 PoolKind = "v3"
	// PoolKindV2 is a constant-product pair (totalSupply, getReserves).
	PoolKindV2 PoolKind = "v2"
)

// ParsePoolKind normalizes a configured kind; empty means v3.
func ParsePoolKind(input string) (PoolKind, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "v3", "uni3", "univ3":
		return PoolKindV3, true
	case "v2", "uni2", "univ2":
		return PoolKindV2, true
	default:
		return "", false
	}
}

// PoolConfig is one entry of the tracked pool universe.
type PoolConfig struct {
	Address string   `json:"address" mapstructure:"address"`
	Symbol  string   `json:"symbol" mapstructure:"symbol"`
	Kind    PoolKind `json:"kind" mapstructure:"kind"`
}

// Pool is a registered pool. Tokens are ordered as the pool orders them;
// per-token arrays in snapshots follow the same order.
type Pool struct {
	ChainID uint64   `json:"chain_id"`
	Address string   `json:"address"`
	Symbol  string   `json:"symbol"`
	Kind    PoolKind `json:"kind"`
	Tokens  []Token  `json:"tokens"`
}
