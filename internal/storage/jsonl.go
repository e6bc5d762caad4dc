package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"poolarb/internal/model"
)

// JsonlStorage appends records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// Append writes each record as one JSON line.
func (s *JsonlStorage) Append(records ...interface{}) error {
	if len(records) == 0 {
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

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

// Publish appends a signal.
func (s *JsonlStorage) Publish(_ context.Context, signal model.Signal) error {
	return s.Append(signal)
}

// LogCycle appends a cycle record.
func (s *JsonlStorage) LogCycle(_ context.Context, record model.CycleRecord) error {
	return s.Append(record)
}

// RecordFailure appends a decode failure.
func (s *JsonlStorage) RecordFailure(_ context.Context, failure model.DecodeFailure) error {
	return s.Append(failure)
}
