package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/snapshot"
	"poolScope/internal/storage/memory"
)

type fakeChain struct {
	mu         sync.Mutex
	head       uint64
	failTs     int
	tsRequests []uint64
}

func (c *fakeChain) LatestBlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, nil
}

func (c *fakeChain) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tsRequests = append(c.tsRequests, number)
	if c.failTs > 0 {
		c.failTs--
		return 0, errors.New("header not found")
	}
	return number * 12, nil
}

type recordingHandler struct {
	mu     sync.Mutex
	blocks []snapshot.Block
	failAt uint64
	onCall func()
}

func (h *recordingHandler) HandleBlock(_ context.Context, block snapshot.Block) (snapshot.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.onCall != nil {
		h.onCall()
	}
	if h.failAt != 0 && block.Height == h.failAt {
		return snapshot.Result{}, errors.New("slot0 reverted")
	}
	h.blocks = append(h.blocks, block)
	return snapshot.Result{Outcome: snapshot.OutcomeCommitted}, nil
}

func (h *recordingHandler) heights() []uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]uint64, 0, len(h.blocks))
	for _, b := range h.blocks {
		out = append(out, b.Height)
	}
	return out
}

func fastRetry(cfg RunConfig) RunConfig {
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestRunnerWalksEveryInterval(t *testing.T) {
	chain := &fakeChain{head: 1000}
	handler := &recordingHandler{}
	cp := NewStateCheckpoint(memory.NewStore(), "test")

	r := NewRunner(fastRetry(RunConfig{FromBlock: 100, ToBlock: 700, BlockInterval: 200}), chain, handler, cp, nil, nil)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []uint64{100, 300, 500, 700}, handler.heights())
	assert.Equal(t, uint64(300*12), handler.blocks[1].Timestamp)

	last, ok, err := cp.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(700), last)
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	chain := &fakeChain{head: 1000}
	handler := &recordingHandler{}
	cp := NewFileCheckpoint(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, cp.Save(context.Background(), 300))

	r := NewRunner(fastRetry(RunConfig{FromBlock: 100, BlockInterval: 200}), chain, handler, cp, nil, nil)
	require.NoError(t, r.Run(context.Background()))

	// ToBlock 0 runs to the head
	assert.Equal(t, []uint64{500, 700, 900}, handler.heights())
}

func TestRunnerRetriesTimestamp(t *testing.T) {
	chain := &fakeChain{head: 10, failTs: 2}
	handler := &recordingHandler{}

	r := NewRunner(fastRetry(RunConfig{FromBlock: 10, ToBlock: 10, BlockInterval: 1}), chain, handler, nil, nil, nil)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []uint64{10, 10, 10}, chain.tsRequests)
	assert.Equal(t, []uint64{10}, handler.heights())
}

func TestRunnerStopsOnHandlerFailure(t *testing.T) {
	chain := &fakeChain{head: 1000}
	handler := &recordingHandler{failAt: 300}
	cp := NewStateCheckpoint(memory.NewStore(), "test")

	r := NewRunner(fastRetry(RunConfig{FromBlock: 100, ToBlock: 700, BlockInterval: 200}), chain, handler, cp, nil, nil)
	err := r.Run(context.Background())
	require.ErrorContains(t, err, "handle block 300")

	assert.Equal(t, []uint64{100}, handler.heights())
	last, ok, err := cp.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(100), last)
}

func TestRunnerFollowStopsOnCancel(t *testing.T) {
	chain := &fakeChain{head: 20}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := &recordingHandler{}
	handler.onCall = func() {
		if len(handler.blocks) == 1 {
			chain.mu.Lock()
			chain.head = 30
			chain.mu.Unlock()
		}
		if len(handler.blocks) == 2 {
			cancel()
		}
	}

	cfg := fastRetry(RunConfig{FromBlock: 10, BlockInterval: 10, Follow: true, PollInterval: time.Millisecond})
	err := NewRunner(cfg, chain, handler, nil, nil, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []uint64{10, 20, 30}, handler.heights())
}

func TestRunnerFollowStopsAtEndBlock(t *testing.T) {
	chain := &fakeChain{head: 20}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handler := &recordingHandler{}
	handler.onCall = func() {
		chain.mu.Lock()
		chain.head = 50
		chain.mu.Unlock()
	}

	cfg := fastRetry(RunConfig{FromBlock: 10, ToBlock: 30, BlockInterval: 10, Follow: true, PollInterval: time.Millisecond})
	require.NoError(t, NewRunner(cfg, chain, handler, nil, nil, nil).Run(ctx))
	assert.Equal(t, []uint64{10, 20, 30}, handler.heights())
	assert.NoError(t, ctx.Err())
}

func TestRunnerRejectsZeroInterval(t *testing.T) {
	r := NewRunner(RunConfig{}, &fakeChain{}, &recordingHandler{}, nil, nil, nil)
	require.Error(t, r.Run(context.Background()))
}
