package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("test", reg)

	m.PriceResolved("feed")
	m.PriceResolved("feed")
	m.PriceResolved("none")
	m.SnapshotCycle("skipped")
	m.SnapshotCommitted(3600, 2, 150*time.Millisecond)
	m.BlockProcessed(200)

	hits, misses := m.MemoCounters("TokenPrice")
	hits.Inc()
	misses.Inc()
	misses.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PriceResolutions.WithLabelValues("feed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PriceResolutions.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotCycles.WithLabelValues("skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotsWritten))
	assert.Equal(t, 3600.0, testutil.ToFloat64(m.LastCommittedBucket))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MemoHits.WithLabelValues("TokenPrice")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MemoMisses.WithLabelValues("TokenPrice")))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.LastBlock))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PriceResolved("feed")
	m.SnapshotCycle("committed")
	m.SnapshotCommitted(0, 1, time.Second)
	m.BlockProcessed(1)

	hits, misses := m.MemoCounters("registry")
	assert.Nil(t, hits)
	assert.Nil(t, misses)
}
