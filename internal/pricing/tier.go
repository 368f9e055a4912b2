package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNoRoute means a tier has nothing registered for the token on this
	// network. It is a configuration gap, not a chain failure.
	ErrNoRoute = errors.New("no route for token")
	// ErrUnavailable means every tier failed.
	ErrUnavailable = errors.New("price unavailable")
)

// SourceNone marks a quote produced by the terminal fallback.
const SourceNone = "none"

// Attempt tries to price token at height using one source.
type Attempt func(ctx context.Context, token common.Address, height uint64) (float64, error)

// Tier is one named price source in the cascade.
type Tier struct {
	Name    string
	Attempt Attempt
}

// Quote is a resolved USD price and the tier that produced it. A Source of
// SourceNone means the price is unavailable and Price is 0.
type Quote struct {
	Price  float64 `json:"price"`
	Source string  `json:"source"`
}

// Available reports whether any tier answered.
func (q Quote) Available() bool {
	return q.Source != "" && q.Source != SourceNone
}

// FirstSuccess runs tiers in order and returns the first result that
// completes without error. When all fail the error wraps ErrUnavailable and
// every tier failure. A cancelled context stops the cascade immediately.
func FirstSuccess(ctx context.Context, tiers []Tier, token common.Address, height uint64) (Quote, error) {
	errs := make([]error, 0, len(tiers))
	for _, tier := range tiers {
		price, err := tier.Attempt(ctx, token, height)
		if err == nil {
			return Quote{Price: price, Source: tier.Name}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Quote{}, ctxErr
		}
		errs = append(errs, fmt.Errorf("%s: %w", tier.Name, err))
	}
	return Quote{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}
