package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolScope/internal/chain"
	"poolScope/internal/config"
	"poolScope/internal/indexer"
	"poolScope/internal/memo"
	"poolScope/internal/metrics"
	"poolScope/internal/pricing"
	"poolScope/internal/registry"
	"poolScope/internal/snapshot"
	"poolScope/internal/storage"
	"poolScope/internal/storage/postgres"
)

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pools, err := indexer.ParsePools(cfg.Pools)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	network, err := config.SelectNetwork(cfg.Networks, cfg.Network, chainID.Uint64())
	if err != nil {
		return err
	}

	m := metrics.New("poolscope", prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, logger)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = memo.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	prefix := fmt.Sprintf("poolscope:%s:", network.Name)
	feedPrices := memo.New[float64](
		priceStore[float64](cfg, redisClient, prefix, logger),
		memo.WithCounters(m.MemoCounters("FeedPrice")),
	)
	quotes := memo.New[pricing.Quote](
		priceStore[pricing.Quote](cfg, redisClient, prefix, logger),
		memo.WithCounters(m.MemoCounters("TokenPrice")),
	)
	sources := pricing.NewSources(chainClient, network, feedPrices)
	resolver := pricing.NewResolver(pricing.ResolverConfig{CacheUnavailable: cfg.CacheUnavailable}, sources.Tiers(), quotes, m, logger)

	reg := registry.New(chainID.Uint64(), chainClient, store, logger, memo.WithCounters(m.MemoCounters("registry")))

	builder, err := snapshot.NewBuilder(snapshot.Config{
		ChainID:    chainID.Uint64(),
		Resolution: cfg.Resolution,
		Width:      cfg.Width,
		Pools:      pools,
		Workers:    cfg.Workers,
	}, chainClient, reg, resolver, store, m, logger)
	if err != nil {
		return err
	}
	defer builder.Close()

	var checkpoint indexer.Checkpointer
	if cfg.CheckpointEnabled {
		if cfg.PGDSN != "" {
			checkpoint = indexer.NewStateCheckpoint(store, fmt.Sprintf("snapshot:%s:%s", network.Name, cfg.Resolution))
		} else {
			checkpoint = indexer.NewFileCheckpoint(cfg.Checkpoint)
		}
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:     cfg.FromBlock,
		ToBlock:       cfg.ToBlock,
		BlockInterval: cfg.BlockInterval,
		Follow:        cfg.Follow,
		PollInterval:  cfg.PollInterval,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
	}, chainClient, builder, checkpoint, m, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("network", network.Name),
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("block_interval", cfg.BlockInterval),
		zap.Bool("follow", cfg.Follow),
		zap.Int("pools", len(pools)),
		zap.String("res", cfg.Resolution),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("redis", redisClient != nil),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.PGDSN == "" {
		return storage.OpenJsonl(ctx, cfg.Out)
	}
	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return store, nil
}

// priceStore bounds price memos in memory and, with Redis configured,
// shares them between processes.
func priceStore[V any](cfg config.Config, client *redis.Client, prefix string, logger *zap.Logger) memo.Store[V] {
	near := memo.NewLRUStore[V](cfg.MemoSize, cfg.MemoTTL)
	if client == nil {
		return near
	}
	return &memo.TieredStore[V]{
		Near:   near,
		Far:    memo.NewRedisStore[V](client, prefix, cfg.MemoTTL),
		Logger: logger,
	}
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
