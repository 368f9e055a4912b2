package memory

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"poolScope/internal/model"
)

// ErrInjected is returned by InsertSnapshots after FailNextInsert.
var ErrInjected = errors.New("injected insert failure")

// Store keeps tokens, pools, snapshots and checkpoints in process memory.
// It backs dry runs and tests.
type Store struct {
	mu        sync.RWMutex
	tokens    map[string]model.Token
	pools     map[string]model.Pool
	snapshots []model.Snapshot
	state     map[string]uint64

	inserts    int
	failInsert bool
}

func NewStore() *Store {
	return &Store{
		tokens: make(map[string]model.Token),
		pools:  make(map[string]model.Pool),
		state:  make(map[string]uint64),
	}
}

func (s *Store) Close() {}

func (s *Store) FindToken(_ context.Context, chainID uint64, address string) (model.Token, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[key(chainID, address)]
	return token, ok, nil
}

func (s *Store) SaveToken(_ context.Context, token model.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(token.ChainID, token.Address)
	if _, ok := s.tokens[k]; !ok {
		s.tokens[k] = token
	}
	return nil
}

func (s *Store) FindPool(_ context.Context, chainID uint64, address string) (model.Pool, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, ok := s.pools[key(chainID, address)]
	return pool, ok, nil
}

func (s *Store) SavePool(_ context.Context, pool model.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(pool.ChainID, pool.Address)
	if _, ok := s.pools[k]; !ok {
		s.pools[k] = pool
	}
	return nil
}

func (s *Store) PoolCount(_ context.Context, chainID uint64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, pool := range s.pools {
		if pool.ChainID == chainID {
			count++
		}
	}
	return count, nil
}

// LatestSnapshot returns the snapshot with the greatest bucket for a chain
// and resolution.
func (s *Store) LatestSnapshot(_ context.Context, chainID uint64, resolution string) (model.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		latest model.Snapshot
		found  bool
	)
	for _, snap := range s.snapshots {
		if snap.ChainID != chainID || snap.Resolution != resolution {
			continue
		}
		if !found || snap.Timestamp > latest.Timestamp {
			latest = snap
			found = true
		}
	}
	return latest, found, nil
}

// InsertSnapshots appends the batch as a whole or not at all.
func (s *Store) InsertSnapshots(_ context.Context, snapshots []model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.failInsert {
		s.failInsert = false
		return ErrInjected
	}
	s.snapshots = append(s.snapshots, snapshots...)
	return nil
}

func (s *Store) LoadState(_ context.Context, name string) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.state[name]
	return value, ok, nil
}

func (s *Store) SaveState(_ context.Context, name string, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[name] = value
	return nil
}

// Snapshots returns a copy of every stored snapshot in insertion order.
func (s *Store) Snapshots() []model.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Snapshot(nil), s.snapshots...)
}

// Inserts counts InsertSnapshots calls, failed ones included.
func (s *Store) Inserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inserts
}

// FailNextInsert makes the next InsertSnapshots call fail.
func (s *Store) FailNextInsert() {
	s.mu.Lock()
	s.failInsert = true
	s.mu.Unlock()
}

func key(chainID uint64, address string) string {
	return strconv.FormatUint(chainID, 10) + ":" + strings.ToLower(address)
}
