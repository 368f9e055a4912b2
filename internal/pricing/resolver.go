package pricing

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolScope/internal/memo"
	"poolScope/internal/metrics"
)

// ResolverConfig controls caching of failed resolutions.
type ResolverConfig struct {
	// CacheUnavailable stores "no source answered" like any other result,
	// so a (token, height) that failed once is never retried.
	CacheUnavailable bool
}

// Resolver resolves token USD prices through the tier cascade, memoized
// per (token, height).
type Resolver struct {
	cfg     ResolverConfig
	tiers   []Tier
	quotes  *memo.Memo[Quote]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewResolver(cfg ResolverConfig, tiers []Tier, quotes *memo.Memo[Quote], m *metrics.Metrics, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if quotes == nil {
		quotes = memo.New[Quote](memo.NewMapStore[Quote]())
	}
	return &Resolver{cfg: cfg, tiers: tiers, quotes: quotes, metrics: m, logger: logger}
}

// Price returns the token's USD price at height, or 0 when no tier could
// price it. The error is non-nil only when ctx is done or the memo store
// fails; tier failures never surface.
func (r *Resolver) Price(ctx context.Context, token common.Address, height uint64) (float64, error) {
	quote, err := r.Quote(ctx, token, height)
	if err != nil {
		return 0, err
	}
	return quote.Price, nil
}

// Quote is Price with the answering tier attached.
func (r *Resolver) Quote(ctx context.Context, token common.Address, height uint64) (Quote, error) {
	key := memo.Key("TokenPrice", token.Hex(), height)
	quote, err := r.quotes.GetOrCompute(ctx, key, func(ctx context.Context) (Quote, error) {
		return r.resolve(ctx, token, height)
	})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return Quote{Source: SourceNone}, nil
		}
		return Quote{}, err
	}
	return quote, nil
}

func (r *Resolver) resolve(ctx context.Context, token common.Address, height uint64) (Quote, error) {
	quote, err := FirstSuccess(ctx, r.tiers, token, height)
	if err == nil {
		r.metrics.PriceResolved(quote.Source)
		r.logger.Debug("price resolved",
			zap.String("token", token.Hex()),
			zap.Uint64("height", height),
			zap.String("source", quote.Source),
			zap.Float64("price", quote.Price),
		)
		return quote, nil
	}
	if !errors.Is(err, ErrUnavailable) {
		return Quote{}, err
	}

	r.metrics.PriceResolved(SourceNone)
	r.logger.Debug("price unavailable",
		zap.String("token", token.Hex()),
		zap.Uint64("height", height),
		zap.Error(err),
	)
	if r.cfg.CacheUnavailable {
		return Quote{Source: SourceNone}, nil
	}
	return Quote{}, err
}
