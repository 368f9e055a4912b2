package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolScope/internal/chain"
	"poolScope/internal/dex"
	"poolScope/internal/metrics"
	"poolScope/internal/model"
	"poolScope/internal/units"
)

const (
	OutcomeSkipped   = "skipped"
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"

	// liquidity and LP supply are both reported with 18 decimals
	supplyDecimals = 18
)

// Repository stores snapshots.
type Repository interface {
	LatestSnapshot(ctx context.Context, chainID uint64, resolution string) (model.Snapshot, bool, error)
	InsertSnapshots(ctx context.Context, snapshots []model.Snapshot) error
}

// Registry resolves the tracked pool universe.
type Registry interface {
	Pools(ctx context.Context, configs []model.PoolConfig) ([]model.Pool, error)
	PoolCount(ctx context.Context) (int, error)
}

// PriceResolver returns a token's USD price at a height, 0 when unknown.
type PriceResolver interface {
	Price(ctx context.Context, token common.Address, height uint64) (float64, error)
}

// Config describes one snapshot series.
type Config struct {
	ChainID    uint64
	Resolution string
	Width      time.Duration
	Pools      []model.PoolConfig
	Workers    int
}

// Block is the part of a block header the builder needs.
type Block struct {
	Height    uint64
	Timestamp uint64
}

// Result reports what one invocation did.
type Result struct {
	Outcome   string
	Bucket    uint64
	Snapshots []model.Snapshot
}

// Builder writes at most one snapshot set per time bucket.
type Builder struct {
	cfg      Config
	width    uint64
	caller   chain.Caller
	registry Registry
	prices   PriceResolver
	repo     Repository
	workers  pond.Pool
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func NewBuilder(cfg Config, caller chain.Caller, registry Registry, prices PriceResolver, repo Repository, m *metrics.Metrics, logger *zap.Logger) (*Builder, error) {
	if cfg.Width < time.Second {
		return nil, fmt.Errorf("snapshot width must be at least 1s, got %s", cfg.Width)
	}
	if cfg.Resolution == "" {
		return nil, errors.New("snapshot resolution is required")
	}
	if len(cfg.Pools) == 0 {
		return nil, errors.New("no pools configured")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		cfg:      cfg,
		width:    uint64(cfg.Width / time.Second),
		caller:   caller,
		registry: registry,
		prices:   prices,
		repo:     repo,
		workers:  pond.NewPool(cfg.Workers),
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Close stops the worker pool.
func (b *Builder) Close() {
	b.workers.StopAndWait()
}

// Bucket floors ts to a multiple of width.
func Bucket(ts, width uint64) uint64 {
	return ts - ts%width
}

// HandleBlock snapshots every pool at block unless the bucket containing
// the block timestamp is already covered. Either every pool's snapshot is
// stored or none is.
func (b *Builder) HandleBlock(ctx context.Context, block Block) (Result, error) {
	bucket := Bucket(block.Timestamp, b.width)

	latest, found, err := b.repo.LatestSnapshot(ctx, b.cfg.ChainID, b.cfg.Resolution)
	if err != nil {
		return Result{}, fmt.Errorf("latest snapshot: %w", err)
	}
	// with no history the baseline is the previous bucket, which is always stale
	if found && latest.Timestamp >= bucket {
		b.metrics.SnapshotCycle(OutcomeSkipped)
		b.logger.Debug("snapshot bucket already covered",
			zap.Uint64("block", block.Height),
			zap.Uint64("bucket", bucket),
			zap.Uint64("latest", latest.Timestamp),
		)
		return Result{Outcome: OutcomeSkipped, Bucket: bucket}, nil
	}

	start := time.Now()
	snapshots, err := b.build(ctx, block, bucket)
	if err != nil {
		b.metrics.SnapshotCycle(OutcomeFailed)
		return Result{}, err
	}
	if err := b.repo.InsertSnapshots(ctx, snapshots); err != nil {
		b.metrics.SnapshotCycle(OutcomeFailed)
		return Result{}, fmt.Errorf("insert snapshots: %w", err)
	}

	took := time.Since(start)
	b.metrics.SnapshotCycle(OutcomeCommitted)
	b.metrics.SnapshotCommitted(bucket, len(snapshots), took)
	b.logger.Info("snapshots committed",
		zap.Uint64("block", block.Height),
		zap.Uint64("bucket", bucket),
		zap.String("res", b.cfg.Resolution),
		zap.Int("pools", len(snapshots)),
		zap.Duration("took", took),
	)
	return Result{Outcome: OutcomeCommitted, Bucket: bucket, Snapshots: snapshots}, nil
}

func (b *Builder) build(ctx context.Context, block Block, bucket uint64) ([]model.Snapshot, error) {
	count, err := b.registry.PoolCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		b.logger.Info("bootstrapping pool registry", zap.Int("pools", len(b.cfg.Pools)))
	}
	pools, err := b.registry.Pools(ctx, b.cfg.Pools)
	if err != nil {
		return nil, fmt.Errorf("resolve pools: %w", err)
	}

	snapshots := make([]model.Snapshot, len(pools))
	group := b.workers.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, pool := range pools {
		group.SubmitErr(func() error {
			snap, err := b.buildPool(groupCtx, pool, block, bucket)
			if err != nil {
				return fmt.Errorf("pool %s: %w", pool.Address, err)
			}
			snapshots[i] = snap
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (b *Builder) buildPool(ctx context.Context, pool model.Pool, block Block, bucket uint64) (model.Snapshot, error) {
	addr := common.HexToAddress(pool.Address)
	height := chain.Height(block.Height)

	var (
		state model.PoolState
		err   error
	)
	switch pool.Kind {
	case model.PoolKindV2:
		state, err = dex.FetchV2State(ctx, b.caller, addr, height)
	default:
		state, err = dex.FetchV3State(ctx, b.caller, addr, height)
	}
	if err != nil {
		return model.Snapshot{}, err
	}

	prices, err := b.tokenPrices(ctx, pool, block.Height)
	if err != nil {
		return model.Snapshot{}, err
	}

	snap := model.Snapshot{
		ID:          uuid.NewString(),
		ChainID:     b.cfg.ChainID,
		PoolAddress: pool.Address,
		PoolSymbol:  pool.Symbol,
		Resolution:  b.cfg.Resolution,
		Timestamp:   bucket,
		Block:       block.Height,
		TotalSupply: units.Scale(state.TotalSupply, supplyDecimals),
		Prices:      prices,
		Tick:        state.Tick,
		CreatedAt:   b.now().UTC(),
	}
	if state.SqrtPriceX96 != nil {
		snap.SqrtPriceX96 = state.SqrtPriceX96.String()
	}
	switch pool.Kind {
	case model.PoolKindV2:
		snap.Reserves = scaleReserves(state.Reserves, pool.Tokens)
	default:
		balances, err := b.balances(ctx, pool, addr, height)
		if err != nil {
			return model.Snapshot{}, err
		}
		snap.Reserves = balances
	}
	snap.TVL = poolValue(snap.Reserves, prices)
	if pool.Kind == model.PoolKindV2 && snap.TVL != nil && snap.TotalSupply != 0 {
		lp := *snap.TVL / snap.TotalSupply
		snap.LPPrice = &lp
	}
	return snap, nil
}

// balances reads the pool's token balances. They are informational, so a
// failed read leaves them empty instead of failing the cycle.
func (b *Builder) balances(ctx context.Context, pool model.Pool, addr common.Address, height *big.Int) ([]float64, error) {
	tokens := make([]common.Address, 0, len(pool.Tokens))
	for _, token := range pool.Tokens {
		tokens = append(tokens, common.HexToAddress(token.Address))
	}
	raw, err := dex.FetchBalances(ctx, b.caller, tokens, addr, height)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		b.logger.Debug("pool balances unavailable", zap.String("pool", pool.Address), zap.Error(err))
		return nil, nil
	}
	return scaleReserves(raw, pool.Tokens), nil
}

// tokenPrices resolves every token concurrently; result i belongs to token i.
func (b *Builder) tokenPrices(ctx context.Context, pool model.Pool, height uint64) ([]float64, error) {
	prices := make([]float64, len(pool.Tokens))
	g, gctx := errgroup.WithContext(ctx)
	for i, token := range pool.Tokens {
		g.Go(func() error {
			price, err := b.prices.Price(gctx, common.HexToAddress(token.Address), height)
			if err != nil {
				return fmt.Errorf("price %s: %w", token.Address, err)
			}
			prices[i] = price
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prices, nil
}

func scaleReserves(raw []*big.Int, tokens []model.Token) []float64 {
	out := make([]float64, len(raw))
	for i, reserve := range raw {
		decimals := uint8(supplyDecimals)
		if i < len(tokens) {
			decimals = tokens[i].Decimals
		}
		out[i] = units.Scale(reserve, decimals)
	}
	return out
}

// poolValue is the USD value of reserves at prices.
func poolValue(reserves, prices []float64) *float64 {
	if len(reserves) == 0 || len(reserves) != len(prices) {
		return nil
	}
	var value float64
	for i, reserve := range reserves {
		value += reserve * prices[i]
	}
	return &value
}
