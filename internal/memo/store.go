package memo

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

// MapStore keeps every value for the lifetime of the process.
type MapStore[V any] struct {
	data *xsync.Map[string, V]
}

func NewMapStore[V any]() *MapStore[V] {
	return &MapStore[V]{data: xsync.NewMap[string, V]()}
}

func (s *MapStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	value, ok := s.data.Load(key)
	return value, ok, nil
}

func (s *MapStore[V]) Set(_ context.Context, key string, value V) error {
	s.data.Store(key, value)
	return nil
}

// Len returns the number of stored keys.
func (s *MapStore[V]) Len() int {
	return s.data.Size()
}

// LRUStore bounds the memo by entry count and, optionally, entry age.
// A size of 0 means unbounded; a ttl of 0 means entries never expire.
type LRUStore[V any] struct {
	lru *expirable.LRU[string, V]
}

func NewLRUStore[V any](size int, ttl time.Duration) *LRUStore[V] {
	return &LRUStore[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

func (s *LRUStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	value, ok := s.lru.Get(key)
	return value, ok, nil
}

func (s *LRUStore[V]) Set(_ context.Context, key string, value V) error {
	s.lru.Add(key, value)
	return nil
}

// Len returns the number of live keys.
func (s *LRUStore[V]) Len() int {
	return s.lru.Len()
}

// TieredStore reads through a near store to a shared far store. Far store
// failures degrade to misses so a flaky shared cache never blocks pricing.
type TieredStore[V any] struct {
	Near   Store[V]
	Far    Store[V]
	Logger *zap.Logger
}

func (s *TieredStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	value, ok, err := s.Near.Get(ctx, key)
	if err != nil || ok || s.Far == nil {
		return value, ok, err
	}

	value, ok, err = s.Far.Get(ctx, key)
	if err != nil {
		s.logger().Warn("far memo get failed", zap.String("key", key), zap.Error(err))
		var zero V
		return zero, false, nil
	}
	if ok {
		if err := s.Near.Set(ctx, key, value); err != nil {
			return value, true, err
		}
	}
	return value, ok, nil
}

func (s *TieredStore[V]) Set(ctx context.Context, key string, value V) error {
	if err := s.Near.Set(ctx, key, value); err != nil {
		return err
	}
	if s.Far != nil {
		if err := s.Far.Set(ctx, key, value); err != nil {
			s.logger().Warn("far memo set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

func (s *TieredStore[V]) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
