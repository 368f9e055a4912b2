package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/model"
)

func TestStoreRegistryIsCreateOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.SaveToken(ctx, model.Token{ChainID: 1, Address: "0xAbC", Symbol: "A"}))
	require.NoError(t, s.SaveToken(ctx, model.Token{ChainID: 1, Address: "0xabc", Symbol: "B"}))
	token, ok, err := s.FindToken(ctx, 1, "0xABC")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", token.Symbol)

	_, ok, err = s.FindToken(ctx, 2, "0xabc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SavePool(ctx, model.Pool{ChainID: 1, Address: "0x01"}))
	require.NoError(t, s.SavePool(ctx, model.Pool{ChainID: 1, Address: "0x02"}))
	require.NoError(t, s.SavePool(ctx, model.Pool{ChainID: 2, Address: "0x01"}))
	count, err := s.PoolCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreLatestSnapshotPerChainAndResolution(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.InsertSnapshots(ctx, []model.Snapshot{
		{ID: "a", ChainID: 1, Resolution: "1h", Timestamp: 7200},
		{ID: "b", ChainID: 1, Resolution: "1d", Timestamp: 86400},
		{ID: "x", ChainID: 42161, Resolution: "1h", Timestamp: 90000},
		{ID: "c", ChainID: 1, Resolution: "1h", Timestamp: 3600},
	}))

	latest, ok, err := s.LatestSnapshot(ctx, 1, "1h")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", latest.ID)

	latest, ok, err = s.LatestSnapshot(ctx, 42161, "1h")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", latest.ID)

	_, ok, err = s.LatestSnapshot(ctx, 10, "1h")
	require.NoError(t, err)
	assert.False(t, ok)

	s.FailNextInsert()
	require.ErrorIs(t, s.InsertSnapshots(ctx, []model.Snapshot{{ID: "d", ChainID: 1, Resolution: "1h", Timestamp: 10800}}), ErrInjected)
	latest, _, _ = s.LatestSnapshot(ctx, 1, "1h")
	assert.Equal(t, "a", latest.ID)
	assert.Equal(t, 2, s.Inserts())
}

func TestStoreState(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, ok, err := s.LoadState(ctx, "run")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveState(ctx, "run", 42))
	value, ok, err := s.LoadState(ctx, "run")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), value)
}
