package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/chain"
	"poolScope/internal/dex"
	"poolScope/internal/memo"
	"poolScope/internal/model"
)

// Repository persists resolved tokens and pools.
type Repository interface {
	FindToken(ctx context.Context, chainID uint64, address string) (model.Token, bool, error)
	SaveToken(ctx context.Context, token model.Token) error
	FindPool(ctx context.Context, chainID uint64, address string) (model.Pool, bool, error)
	SavePool(ctx context.Context, pool model.Pool) error
	PoolCount(ctx context.Context, chainID uint64) (int, error)
}

// Registry resolves tokens and pools once and serves them from memory
// afterwards. An address is never fetched from chain twice per process.
type Registry struct {
	chainID uint64
	caller  chain.Caller
	repo    Repository
	tokens  *memo.Memo[model.Token]
	pools   *memo.Memo[model.Pool]
	logger  *zap.Logger
}

func New(chainID uint64, caller chain.Caller, repo Repository, logger *zap.Logger, opts ...memo.Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		chainID: chainID,
		caller:  caller,
		repo:    repo,
		tokens:  memo.New[model.Token](memo.NewMapStore[model.Token](), opts...),
		pools:   memo.New[model.Pool](memo.NewMapStore[model.Pool](), opts...),
		logger:  logger,
	}
}

// Token returns the token at address, creating it from ERC20 metadata on
// first reference.
func (r *Registry) Token(ctx context.Context, address string) (model.Token, error) {
	if !common.IsHexAddress(address) {
		return model.Token{}, fmt.Errorf("invalid token address %q", address)
	}
	addr := common.HexToAddress(address)
	return r.tokens.GetOrCompute(ctx, memo.AddressKey("token", addr.Hex()), func(ctx context.Context) (model.Token, error) {
		token, ok, err := r.repo.FindToken(ctx, r.chainID, addr.Hex())
		if err != nil {
			return model.Token{}, fmt.Errorf("find token %s: %w", addr.Hex(), err)
		}
		if ok {
			return token, nil
		}

		token, err = dex.FetchTokenMeta(ctx, r.caller, addr, r.logger)
		if err != nil {
			return model.Token{}, err
		}
		token.ChainID = r.chainID
		if err := r.repo.SaveToken(ctx, token); err != nil {
			return model.Token{}, fmt.Errorf("save token %s: %w", addr.Hex(), err)
		}
		r.logger.Info("token registered",
			zap.String("token", token.Address),
			zap.String("symbol", token.Symbol),
			zap.Uint8("decimals", token.Decimals),
		)
		return token, nil
	})
}

// Pool returns the configured pool, creating it on first reference from
// its token0/token1 and their token records.
func (r *Registry) Pool(ctx context.Context, cfg model.PoolConfig) (model.Pool, error) {
	if !common.IsHexAddress(cfg.Address) {
		return model.Pool{}, fmt.Errorf("invalid pool address %q", cfg.Address)
	}
	kind, ok := model.ParsePoolKind(string(cfg.Kind))
	if !ok {
		return model.Pool{}, fmt.Errorf("pool %s: unsupported kind %q", cfg.Address, cfg.Kind)
	}
	addr := common.HexToAddress(cfg.Address)

	return r.pools.GetOrCompute(ctx, memo.AddressKey("pool", addr.Hex()), func(ctx context.Context) (model.Pool, error) {
		pool, ok, err := r.repo.FindPool(ctx, r.chainID, addr.Hex())
		if err != nil {
			return model.Pool{}, fmt.Errorf("find pool %s: %w", addr.Hex(), err)
		}
		if ok {
			return pool, nil
		}

		tokenAddrs, err := dex.FetchPoolTokens(ctx, r.caller, addr, kind)
		if err != nil {
			return model.Pool{}, fmt.Errorf("pool %s tokens: %w", addr.Hex(), err)
		}
		tokens := make([]model.Token, len(tokenAddrs))
		for i, tokenAddr := range tokenAddrs {
			token, err := r.Token(ctx, tokenAddr.Hex())
			if err != nil {
				return model.Pool{}, fmt.Errorf("pool %s token%d: %w", addr.Hex(), i, err)
			}
			tokens[i] = token
		}

		pool = model.Pool{
			ChainID: r.chainID,
			Address: addr.Hex(),
			Symbol:  cfg.Symbol,
			Kind:    kind,
			Tokens:  tokens,
		}
		if pool.Symbol == "" {
			pool.Symbol = pairSymbol(tokens)
		}
		if err := r.repo.SavePool(ctx, pool); err != nil {
			return model.Pool{}, fmt.Errorf("save pool %s: %w", addr.Hex(), err)
		}
		r.logger.Info("pool registered",
			zap.String("pool", pool.Address),
			zap.String("symbol", pool.Symbol),
			zap.String("kind", string(pool.Kind)),
		)
		return pool, nil
	})
}

// Pools resolves every configured pool concurrently and returns them in
// configuration order.
func (r *Registry) Pools(ctx context.Context, configs []model.PoolConfig) ([]model.Pool, error) {
	pools := make([]model.Pool, len(configs))
	g, gctx := errgroup.WithContext(ctx)
	for i, cfg := range configs {
		g.Go(func() error {
			pool, err := r.Pool(gctx, cfg)
			if err != nil {
				return err
			}
			pools[i] = pool
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pools, nil
}

// PoolCount returns how many pools are stored for this chain.
func (r *Registry) PoolCount(ctx context.Context) (int, error) {
	count, err := r.repo.PoolCount(ctx, r.chainID)
	if err != nil {
		return 0, fmt.Errorf("count pools: %w", err)
	}
	return count, nil
}

func pairSymbol(tokens []model.Token) string {
	symbols := make([]string, 0, len(tokens))
	for _, token := range tokens {
		symbols = append(symbols, token.Symbol)
	}
	return strings.Join(symbols, "-")
}
