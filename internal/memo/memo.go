package memo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// Store is the backing key/value space of a Memo.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V) error
}

// errAbandoned marks a flight that failed because the caller that started
// it went away.
var errAbandoned = errors.New("memo flight abandoned")

// Memo computes a value at most once per key and serves the stored value
// afterwards. Concurrent misses on the same key share one computation.
// Errors are returned to every waiter and never stored.
type Memo[V any] struct {
	store  Store[V]
	group  singleflight.Group
	hits   prometheus.Counter
	misses prometheus.Counter
}

// Option configures a Memo.
type Option func(*options)

type options struct {
	hits   prometheus.Counter
	misses prometheus.Counter
}

// WithCounters reports hits and misses to the given counters.
func WithCounters(hits, misses prometheus.Counter) Option {
	return func(o *options) {
		o.hits = hits
		o.misses = misses
	}
}

func New[V any](store Store[V], opts ...Option) *Memo[V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Memo[V]{store: store, hits: o.hits, misses: o.misses}
}

// GetOrCompute returns the stored value for key, computing and storing it
// on a miss. The computation runs with the context of the caller that
// started the flight; every caller still returns as soon as its own ctx is
// done. When the starting caller's ctx ends mid-flight, waiters whose ctx
// is still live start a fresh flight instead of inheriting its error.
func (m *Memo[V]) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (V, error)) (V, error) {
	var zero V
	value, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("memo get %s: %w", key, err)
	}
	if ok {
		inc(m.hits)
		return value, nil
	}

	for {
		flight := m.group.DoChan(key, func() (interface{}, error) {
			return m.fill(ctx, key, compute)
		})
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-flight:
			if res.Err == nil {
				return res.Val.(V), nil
			}
			if errors.Is(res.Err, errAbandoned) && ctx.Err() == nil {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			return zero, res.Err
		}
	}
}

func (m *Memo[V]) fill(ctx context.Context, key string, compute func(context.Context) (V, error)) (interface{}, error) {
	// a flight that finished between our miss and DoChan already stored it
	if value, ok, err := m.store.Get(ctx, key); err == nil && ok {
		return value, nil
	}
	inc(m.misses)
	value, err := compute(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", errAbandoned, ctxErr)
		}
		return nil, err
	}
	if err := m.store.Set(ctx, key, value); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", errAbandoned, ctxErr)
		}
		return nil, fmt.Errorf("memo set %s: %w", key, err)
	}
	return value, nil
}

// Key builds a composite memo key of the form namespace:address:axis.
func Key(namespace string, address string, axis uint64) string {
	return fmt.Sprintf("%s:%s:%d", namespace, strings.ToLower(address), axis)
}

// AddressKey builds a key for values that never change per address.
func AddressKey(namespace string, address string) string {
	return namespace + ":" + strings.ToLower(address)
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
