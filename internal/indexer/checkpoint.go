package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CheckpointStore persists the last fully processed block.
type CheckpointStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, lastProcessed uint64) error
}

// Checkpoint is the on-disk checkpoint format.
type Checkpoint struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// FileCheckpointStore keeps the checkpoint in a JSON file. An empty path
// disables checkpointing.
type FileCheckpointStore struct {
	Path string
}

func NewFileCheckpointStore(path string) *FileCheckpointStore {
	return &FileCheckpointStore{Path: path}
}

func (c *FileCheckpointStore) Load(_ context.Context) (uint64, bool, error) {
	if c == nil || c.Path == "" {
		return 0, false, nil
	}

	stat, err := os.Stat(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return 0, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp.LastProcessedBlock, true, nil
}

func (c *FileCheckpointStore) Save(_ context.Context, lastProcessed uint64) error {
	if c == nil || c.Path == "" {
		return nil
	}

	dir := filepath.Dir(c.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(Checkpoint{
		LastProcessedBlock: lastProcessed,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.Path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.Path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// StateBackend is a named progress table, e.g. the Postgres indexer_state.
type StateBackend interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, last uint64) error
}

// DBCheckpointStore keeps the checkpoint in a StateBackend row.
type DBCheckpointStore struct {
	Backend StateBackend
	Name    string
}

func (s *DBCheckpointStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Backend == nil {
		return 0, false, nil
	}
	return s.Backend.LoadState(ctx, s.Name)
}

func (s *DBCheckpointStore) Save(ctx context.Context, lastProcessed uint64) error {
	if s == nil || s.Backend == nil {
		return nil
	}
	return s.Backend.SaveState(ctx, s.Name, lastProcessed)
}
