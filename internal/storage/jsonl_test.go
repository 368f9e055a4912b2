package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolScope/internal/model"
)

func TestJsonlStoreReplaysLatest(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "snapshots.jsonl")

	store, err := OpenJsonl(ctx, path)
	require.NoError(t, err)
	_, found, err := store.LatestSnapshot(ctx, 1, "1h")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.InsertSnapshots(ctx, []model.Snapshot{
		{ID: "a", ChainID: 1, Resolution: "1h", Timestamp: 3600, Prices: []float64{1, 2}},
		{ID: "b", ChainID: 1, Resolution: "1h", Timestamp: 3600, Prices: []float64{3, 4}},
	}))
	require.NoError(t, store.InsertSnapshots(ctx, []model.Snapshot{
		{ID: "c", ChainID: 1, Resolution: "1h", Timestamp: 7200, Prices: []float64{5, 6}},
	}))

	reopened, err := OpenJsonl(ctx, path)
	require.NoError(t, err)
	latest, found, err := reopened.LatestSnapshot(ctx, 1, "1h")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "c", latest.ID)
	assert.Equal(t, uint64(7200), latest.Timestamp)
	assert.Len(t, reopened.Snapshots(), 3)

	_, found, err = reopened.LatestSnapshot(ctx, 1, "1d")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJsonlStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"a\"}\nnot json\n"), 0o644))

	_, err := OpenJsonl(context.Background(), path)
	require.ErrorContains(t, err, ":2:")
}

func TestJsonlStoreEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.jsonl")
	store, err := OpenJsonl(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, store.InsertSnapshots(context.Background(), nil))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
