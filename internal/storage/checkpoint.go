package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"poolarb/internal/model"
)

// Checkpoint tracks the last logged cycle serial.
type Checkpoint struct {
	LastSerial uint64 `json:"last_serial"`
	UpdatedAt  string `json:"updated_at"`
}

// CheckpointStore persists the cycle serial to disk so a restarted scanner
// keeps numbering cycles where it stopped.
type CheckpointStore struct {
	path string
}

func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// LoadSerial returns the stored serial, or false when no checkpoint exists.
func (c *CheckpointStore) LoadSerial(ctx context.Context) (uint64, bool, error) {
	if c == nil || c.path == "" {
		return 0, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return 0, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return 0, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return 0, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp.LastSerial, true, nil
}

// LogCycle records the serial of a finished cycle.
func (c *CheckpointStore) LogCycle(ctx context.Context, rec model.CycleRecord) error {
	return c.Save(rec.Serial)
}

func (c *CheckpointStore) Save(serial uint64) error {
	if c == nil || c.path == "" {
		return nil
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	cp := Checkpoint{
		LastSerial: serial,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}
