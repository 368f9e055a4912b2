package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	defaultFeedDecimals   uint8  = 8
	defaultQuoteDecimals  uint8  = 6
	defaultQuoteFeeTier   uint32 = 500
	defaultQuoteAmountDec uint8  = 18
	defaultPairDecimals   uint8  = 18
)

// PairRoute prices a token through a constant-product pair against the
// network's reference asset. By default token is the pair's token0, so
// reserve1/reserve0 is the token price in reference units.
type PairRoute struct {
	Pair      common.Address
	Decimals0 uint8
	Decimals1 uint8
	Invert    bool
}

// Network is the validated price-source registry of one chain.
type Network struct {
	Name    string
	ChainID uint64

	// token -> aggregator
	Feeds        map[common.Address]common.Address
	FeedDecimals uint8

	Quoter              common.Address
	QuoteToken          common.Address
	QuoteDecimals       uint8
	QuoteFeeTier        uint32
	QuoteAmountDecimals uint8

	// token -> pair
	Pairs     map[common.Address]PairRoute
	Reference common.Address
}

// PairSpec is the configuration form of PairRoute.
type PairSpec struct {
	Pair      string `mapstructure:"pair"`
	Decimals0 uint8  `mapstructure:"decimals0"`
	Decimals1 uint8  `mapstructure:"decimals1"`
	Invert    bool   `mapstructure:"invert"`
}

// NetworkSpec is the configuration form of Network. Zero numeric fields
// take the defaults of the reference deployment.
type NetworkSpec struct {
	ChainID             uint64              `mapstructure:"chain-id"`
	Feeds               map[string]string   `mapstructure:"feeds"`
	FeedDecimals        uint8               `mapstructure:"feed-decimals"`
	Quoter              string              `mapstructure:"quoter"`
	QuoteToken          string              `mapstructure:"quote-token"`
	QuoteDecimals       uint8               `mapstructure:"quote-decimals"`
	QuoteFeeTier        uint32              `mapstructure:"quote-fee-tier"`
	QuoteAmountDecimals uint8               `mapstructure:"quote-amount-decimals"`
	Pairs               map[string]PairSpec `mapstructure:"pairs"`
	Reference           string              `mapstructure:"reference"`
}

// Build validates the spec and returns the typed network. Every address must
// be well formed; pairs require a reference asset with its own feed.
func (s NetworkSpec) Build(name string) (Network, error) {
	n := Network{
		Name:                name,
		ChainID:             s.ChainID,
		Feeds:               make(map[common.Address]common.Address, len(s.Feeds)),
		FeedDecimals:        orDefault(s.FeedDecimals, defaultFeedDecimals),
		QuoteDecimals:       orDefault(s.QuoteDecimals, defaultQuoteDecimals),
		QuoteFeeTier:        s.QuoteFeeTier,
		QuoteAmountDecimals: orDefault(s.QuoteAmountDecimals, defaultQuoteAmountDec),
		Pairs:               make(map[common.Address]PairRoute, len(s.Pairs)),
	}
	if n.QuoteFeeTier == 0 {
		n.QuoteFeeTier = defaultQuoteFeeTier
	}

	for token, feed := range s.Feeds {
		tokenAddr, err := parseAddress(name, "feed token", token)
		if err != nil {
			return Network{}, err
		}
		feedAddr, err := parseAddress(name, "feed", feed)
		if err != nil {
			return Network{}, err
		}
		n.Feeds[tokenAddr] = feedAddr
	}

	if s.Quoter != "" || s.QuoteToken != "" {
		quoter, err := parseAddress(name, "quoter", s.Quoter)
		if err != nil {
			return Network{}, err
		}
		quoteToken, err := parseAddress(name, "quote token", s.QuoteToken)
		if err != nil {
			return Network{}, err
		}
		n.Quoter = quoter
		n.QuoteToken = quoteToken
	}

	for token, pair := range s.Pairs {
		tokenAddr, err := parseAddress(name, "pair token", token)
		if err != nil {
			return Network{}, err
		}
		pairAddr, err := parseAddress(name, "pair", pair.Pair)
		if err != nil {
			return Network{}, err
		}
		n.Pairs[tokenAddr] = PairRoute{
			Pair:      pairAddr,
			Decimals0: orDefault(pair.Decimals0, defaultPairDecimals),
			Decimals1: orDefault(pair.Decimals1, defaultPairDecimals),
			Invert:    pair.Invert,
		}
	}

	if len(n.Pairs) > 0 {
		ref, err := parseAddress(name, "reference", s.Reference)
		if err != nil {
			return Network{}, err
		}
		if _, ok := n.Feeds[ref]; !ok {
			return Network{}, fmt.Errorf("network %s: reference %s has no feed", name, ref.Hex())
		}
		n.Reference = ref
	}

	return n, nil
}

// FeedFor returns the aggregator registered for token.
func (n Network) FeedFor(token common.Address) (common.Address, bool) {
	feed, ok := n.Feeds[token]
	return feed, ok
}

// PairFor returns the constant-product route registered for token.
func (n Network) PairFor(token common.Address) (PairRoute, bool) {
	route, ok := n.Pairs[token]
	return route, ok
}

// HasQuoter reports whether the concentrated-liquidity tier is configured.
func (n Network) HasQuoter() bool {
	return n.Quoter != (common.Address{})
}

// BuildNetworks validates every spec and returns networks keyed by
// normalized name.
func BuildNetworks(specs map[string]NetworkSpec) (map[string]Network, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]Network, len(specs))
	for _, name := range names {
		key := NormalizeNetworkName(name)
		network, err := specs[name].Build(key)
		if err != nil {
			return nil, err
		}
		out[key] = network
	}
	return out, nil
}

// NormalizeNetworkName lower-cases a network name and joins words with
// dashes, so "Arbitrum One" and "arbitrum-one" are the same network.
func NormalizeNetworkName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), "-")
}

func parseAddress(network, field, value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("network %s: invalid %s address %q", network, field, value)
	}
	return common.HexToAddress(value), nil
}

func orDefault(value, def uint8) uint8 {
	if value == 0 {
		return def
	}
	return value
}
