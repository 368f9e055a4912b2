package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Pool snapshot and token price indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Snapshot tracked pools once per time bucket",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "archive RPC URL")
	runCmd.Flags().String("network", "ethereum", "price network name; empty selects by chain id")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().Uint64("block-interval", 200, "handle every Nth block")
	runCmd.Flags().Bool("follow", false, "keep following the chain head")
	runCmd.Flags().Duration("poll-interval", 15*time.Second, "head polling interval in follow mode")
	runCmd.Flags().StringSlice("pool", nil, "tracked pools as address[:kind[:symbol]] (comma-separated)")
	runCmd.Flags().String("resolution", "1h", "snapshot bucket width (e.g. 15m, 1h, 1d)")
	runCmd.Flags().Int("workers", 4, "pools snapshotted concurrently")
	runCmd.Flags().StringToString("feed", nil, "extra price feeds token=aggregator for the selected network")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN; empty writes JSONL")
	runCmd.Flags().String("out", "./data/snapshots.jsonl", "output JSONL path when no pg-dsn is given")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path when no pg-dsn is given")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Int("memo-size", 100_000, "price memo entries kept in memory")
	runCmd.Flags().Duration("memo-ttl", 24*time.Hour, "price memo entry lifetime, 0 keeps entries until evicted")
	runCmd.Flags().Bool("cache-unavailable", true, "memoize prices no source could answer")
	runCmd.Flags().String("redis-addr", "", "optional Redis address shared by price memos")
	runCmd.Flags().String("redis-password", "", "Redis password")
	runCmd.Flags().Int("redis-db", 0, "Redis database")
	runCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	priceCmd := &cobra.Command{
		Use:   "price",
		Short: "Resolve a token's USD price at a block",
		RunE:  runPrice,
	}

	priceCmd.Flags().String("rpc", "", "archive RPC URL")
	priceCmd.Flags().String("network", "", "price network name; empty selects by chain id")
	priceCmd.Flags().String("token", "", "token address")
	priceCmd.Flags().Uint64("block", 0, "block height, 0 means latest")
	priceCmd.Flags().StringToString("feed", nil, "extra price feeds token=aggregator for the selected network")
	priceCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(priceCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the Postgres schema",
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
