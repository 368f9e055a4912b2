// Package metrics exposes Prometheus instrumentation for pricing and
// snapshotting. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the indexer.
type Metrics struct {
	PriceResolutions *prometheus.CounterVec
	MemoHits         *prometheus.CounterVec
	MemoMisses       *prometheus.CounterVec

	SnapshotCycles      *prometheus.CounterVec
	SnapshotsWritten    prometheus.Counter
	SnapshotBuildDur    prometheus.Histogram
	LastCommittedBucket prometheus.Gauge

	BlocksProcessed prometheus.Counter
	LastBlock       prometheus.Gauge
}

// New registers the indexer metrics with reg. A nil reg builds unregistered
// collectors, which is what tests want.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "poolscope"
	}
	factory := promauto.With(reg)

	return &Metrics{
		PriceResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "resolutions_total",
			Help:      "Token price resolutions by the source that answered (none when unavailable).",
		}, []string{"source"}),
		MemoHits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memo",
			Name:      "hits_total",
			Help:      "Memo lookups served from the store.",
		}, []string{"namespace"}),
		MemoMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memo",
			Name:      "misses_total",
			Help:      "Memo lookups that ran the upstream computation.",
		}, []string{"namespace"}),
		SnapshotCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "cycles_total",
			Help:      "Snapshot builder invocations by outcome.",
		}, []string{"outcome"}),
		SnapshotsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "written_total",
			Help:      "Snapshots persisted.",
		}),
		SnapshotBuildDur: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "build_duration_seconds",
			Help:      "Time spent fetching and persisting one snapshot batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		LastCommittedBucket: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "last_committed_bucket_seconds",
			Help:      "Unix time of the last committed snapshot bucket.",
		}),
		BlocksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "blocks_processed_total",
			Help:      "Blocks handed to the snapshot builder.",
		}),
		LastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runner",
			Name:      "last_block",
			Help:      "Height of the last processed block.",
		}),
	}
}

func (m *Metrics) PriceResolved(source string) {
	if m == nil {
		return
	}
	m.PriceResolutions.WithLabelValues(source).Inc()
}

// MemoCounters returns the hit and miss counters for one memo namespace.
func (m *Metrics) MemoCounters(namespace string) (prometheus.Counter, prometheus.Counter) {
	if m == nil {
		return nil, nil
	}
	return m.MemoHits.WithLabelValues(namespace), m.MemoMisses.WithLabelValues(namespace)
}

func (m *Metrics) SnapshotCycle(outcome string) {
	if m == nil {
		return
	}
	m.SnapshotCycles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SnapshotCommitted(bucket uint64, written int, took time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotsWritten.Add(float64(written))
	m.SnapshotBuildDur.Observe(took.Seconds())
	m.LastCommittedBucket.Set(float64(bucket))
}

func (m *Metrics) BlockProcessed(height uint64) {
	if m == nil {
		return
	}
	m.BlocksProcessed.Inc()
	m.LastBlock.Set(float64(height))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
