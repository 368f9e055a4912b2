package pricing

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"poolScope/internal/chain"
	"poolScope/internal/dex"
	"poolScope/internal/memo"
	"poolScope/internal/units"
)

const (
	TierFeed   = "feed"
	TierQuoter = "quoter"
	TierPair   = "pair"
)

// Sources implements the on-chain price tiers of one network.
type Sources struct {
	caller  chain.Caller
	network Network
	// reference-asset feed prices used by the pair tier
	feedPrices *memo.Memo[float64]
}

func NewSources(caller chain.Caller, network Network, feedPrices *memo.Memo[float64]) *Sources {
	if feedPrices == nil {
		feedPrices = memo.New[float64](memo.NewMapStore[float64]())
	}
	return &Sources{caller: caller, network: network, feedPrices: feedPrices}
}

// Tiers returns the cascade in priority order: regulated feed, V3 quoter,
// constant-product pair.
func (s *Sources) Tiers() []Tier {
	return []Tier{
		{Name: TierFeed, Attempt: s.Feed},
		{Name: TierQuoter, Attempt: s.Quoter},
		{Name: TierPair, Attempt: s.Pair},
	}
}

// Feed reads the token's registered aggregator at height.
func (s *Sources) Feed(ctx context.Context, token common.Address, height uint64) (float64, error) {
	feed, ok := s.network.FeedFor(token)
	if !ok {
		return 0, ErrNoRoute
	}
	answer, err := dex.FetchLatestAnswer(ctx, s.caller, feed, chain.Height(height))
	if err != nil {
		return 0, err
	}
	return units.Scale(answer, s.network.FeedDecimals), nil
}

// Quoter simulates selling one whole token for the quote stablecoin
// through the fixed fee tier.
func (s *Sources) Quoter(ctx context.Context, token common.Address, height uint64) (float64, error) {
	if !s.network.HasQuoter() {
		return 0, ErrNoRoute
	}
	amountOut, err := dex.QuoteExactInputSingle(ctx, s.caller,
		s.network.Quoter,
		token,
		s.network.QuoteToken,
		s.network.QuoteFeeTier,
		units.Unit(s.network.QuoteAmountDecimals),
		chain.Height(height),
	)
	if err != nil {
		return 0, err
	}
	return units.Scale(amountOut, s.network.QuoteDecimals), nil
}

// Pair prices token from its constant-product pair reserves, converted to
// USD with the reference asset's feed price.
func (s *Sources) Pair(ctx context.Context, token common.Address, height uint64) (float64, error) {
	route, ok := s.network.PairFor(token)
	if !ok {
		return 0, ErrNoRoute
	}

	raw0, raw1, err := dex.FetchReserves(ctx, s.caller, route.Pair, chain.Height(height))
	if err != nil {
		return 0, err
	}
	reserve0 := units.Scale(raw0, route.Decimals0)
	reserve1 := units.Scale(raw1, route.Decimals1)

	var ratio float64
	if route.Invert {
		if reserve1 == 0 {
			return 0, fmt.Errorf("pair %s: empty reserve1", route.Pair.Hex())
		}
		ratio = reserve0 / reserve1
	} else {
		if reserve0 == 0 {
			return 0, fmt.Errorf("pair %s: empty reserve0", route.Pair.Hex())
		}
		ratio = reserve1 / reserve0
	}

	ref := s.network.Reference
	refPrice, err := s.feedPrices.GetOrCompute(ctx, memo.Key("FeedPrice", ref.Hex(), height), func(ctx context.Context) (float64, error) {
		return s.Feed(ctx, ref, height)
	})
	if err != nil {
		return 0, fmt.Errorf("reference price: %w", err)
	}
	return ratio * refPrice, nil
}
