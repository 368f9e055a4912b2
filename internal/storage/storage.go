package storage

import (
	"context"

	"poolScope/internal/registry"
	"poolScope/internal/snapshot"
)

// Store is everything the indexer persists: the pool registry, the
// snapshot series and named checkpoints.
type Store interface {
	registry.Repository
	snapshot.Repository
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, value uint64) error
	Close()
}
