package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"poolScope/internal/metrics"
	"poolScope/internal/snapshot"
)

// RunConfig holds runtime settings for the runner.
type RunConfig struct {
	FromBlock     uint64
	ToBlock       uint64
	BlockInterval uint64
	Follow        bool
	PollInterval  time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
}

// Chain is the head and header source the runner polls.
type Chain interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// BlockHandler is invoked for every scheduled block.
type BlockHandler interface {
	HandleBlock(ctx context.Context, block snapshot.Block) (snapshot.Result, error)
}

// Runner walks block heights every BlockInterval blocks and hands each one
// to the snapshot builder.
type Runner struct {
	cfg        RunConfig
	chain      Chain
	handler    BlockHandler
	checkpoint Checkpointer
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewRunner builds a Runner. checkpoint may be nil.
func NewRunner(cfg RunConfig, chain Chain, handler BlockHandler, checkpoint Checkpointer, m *metrics.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 15 * time.Second
	}
	return &Runner{
		cfg:        cfg,
		chain:      chain,
		handler:    handler,
		checkpoint: checkpoint,
		metrics:    m,
		logger:     logger,
	}
}

// Run processes [FromBlock, ToBlock]. A zero ToBlock means the current
// head. In follow mode it then keeps polling for new heads until ctx ends
// or, with a non-zero ToBlock, until ToBlock has been processed.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.handler == nil {
		return fmt.Errorf("block handler is nil")
	}
	if r.cfg.BlockInterval == 0 {
		return fmt.Errorf("block interval must be greater than zero")
	}

	from := r.cfg.FromBlock
	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + r.cfg.BlockInterval
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	for {
		to, err := r.target(ctx)
		if err != nil {
			return err
		}

		if from <= to {
			next, err := r.process(ctx, BlockRange{From: from, To: to})
			if err != nil {
				return err
			}
			from = next
		} else if !r.cfg.Follow {
			r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		}

		if !r.cfg.Follow {
			return nil
		}
		if r.cfg.ToBlock != 0 && from > r.cfg.ToBlock {
			r.logger.Info("reached end block", zap.Uint64("to", r.cfg.ToBlock))
			return nil
		}

		timer := time.NewTimer(r.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// target returns the last height to process in this pass.
func (r *Runner) target(ctx context.Context) (uint64, error) {
	if r.cfg.ToBlock != 0 && !r.cfg.Follow {
		return r.cfg.ToBlock, nil
	}
	var latest uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		latest, err = r.chain.LatestBlockNumber(ctx)
		if err != nil {
			r.logger.Warn("latest block fetch failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	if r.cfg.ToBlock != 0 && r.cfg.ToBlock < latest {
		return r.cfg.ToBlock, nil
	}
	return latest, nil
}

// process handles every scheduled height in rng and returns the next
// height to schedule.
func (r *Runner) process(ctx context.Context, rng BlockRange) (uint64, error) {
	heights, err := rng.Heights(r.cfg.BlockInterval)
	if err != nil {
		return 0, err
	}
	r.logger.Info("process range",
		zap.Uint64("from", rng.From),
		zap.Uint64("to", rng.To),
		zap.Int("blocks", len(heights)),
	)

	var committed int
	for _, height := range heights {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		ts, err := r.blockTimestampWithRetry(ctx, height)
		if err != nil {
			return 0, fmt.Errorf("block timestamp %d: %w", height, err)
		}

		res, err := r.handleWithRetry(ctx, snapshot.Block{Height: height, Timestamp: ts})
		if err != nil {
			return 0, fmt.Errorf("handle block %d: %w", height, err)
		}
		if res.Outcome == snapshot.OutcomeCommitted {
			committed++
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, height); err != nil {
				return 0, err
			}
		}
		r.metrics.BlockProcessed(height)
	}

	last := heights[len(heights)-1]
	r.logger.Info("range complete",
		zap.Uint64("from", rng.From),
		zap.Uint64("to", last),
		zap.Int("committed", committed),
	)
	return last + r.cfg.BlockInterval, nil
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

// handleWithRetry retries a failed snapshot cycle. Nothing is stored for a
// failed cycle, so a retry starts from a clean slate.
func (r *Runner) handleWithRetry(ctx context.Context, block snapshot.Block) (snapshot.Result, error) {
	var res snapshot.Result
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		res, err = r.handler.HandleBlock(ctx, block)
		if err != nil {
			r.logger.Warn("snapshot cycle failed", zap.Error(err), zap.Uint64("block_number", block.Height))
		}
		return err
	})
	return res, err
}
