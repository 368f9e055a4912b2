package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolScope/internal/model"
	"poolScope/internal/storage/memory"
)

var (
	_ Store = (*JsonlStore)(nil)
	_ Store = (*memory.Store)(nil)
)

// JsonlStore appends snapshots to a JSONL file. Tokens, pools and
// checkpoints live in memory only; the latest bucket per resolution is
// recovered from the file on open.
type JsonlStore struct {
	*memory.Store
	path string
	mu   sync.Mutex
}

// OpenJsonl opens path, replaying any snapshots already written to it.
func OpenJsonl(ctx context.Context, path string) (*JsonlStore, error) {
	s := &JsonlStore{Store: memory.NewStore(), path: path}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	var replay []model.Snapshot
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var snap model.Snapshot
		if err := json.Unmarshal(scanner.Bytes(), &snap); err != nil {
			return nil, fmt.Errorf("%s:%d: decode snapshot: %w", path, line, err)
		}
		replay = append(replay, snap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read output file: %w", err)
	}
	if err := s.Store.InsertSnapshots(ctx, replay); err != nil {
		return nil, err
	}
	return s, nil
}

// InsertSnapshots appends the batch as JSON lines. A batch that fails to
// flush is not recorded in memory.
func (s *JsonlStore) InsertSnapshots(ctx context.Context, snapshots []model.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// encode everything before touching the file
	var buf []byte
	for _, snap := range snapshots {
		line, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if _, err := writer.Write(buf); err != nil {
		return fmt.Errorf("write snapshots: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return s.Store.InsertSnapshots(ctx, snapshots)
}
