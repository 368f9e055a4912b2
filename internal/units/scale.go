package units

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Scale converts a fixed-point on-chain integer into a float by shifting it
// decimals places to the right. Precision beyond float64 is dropped.
func Scale(raw *big.Int, decimals uint8) float64 {
	if raw == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(raw, -int32(decimals)).Float64()
	return f
}

// Unit returns 10^decimals as a big.Int, i.e. one whole token in raw units.
func Unit(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
