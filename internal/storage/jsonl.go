package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bridgeScope/internal/model"
)

// JsonlStorage appends bridge records to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutBatch appends records as JSON lines.
func (s *JsonlStorage) PutBatch(_ context.Context, records []model.BridgeTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLines(s.path, records)
}

// JsonlErrorLog appends resolve errors to a JSONL file.
type JsonlErrorLog struct {
	path string
	mu   sync.Mutex
}

func NewJsonlErrorLog(path string) *JsonlErrorLog {
	return &JsonlErrorLog{path: path}
}

// PutErrors appends errs as JSON lines.
func (s *JsonlErrorLog) PutErrors(_ context.Context, errs []model.ResolveError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLines(s.path, errs)
}

func appendLines[T any](path string, values []T) error {
	if len(values) == 0 {
		return nil
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, value := range values {
		line, err := json.Marshal(value)
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

// ReadBridgeTransactions calls fn for every record in a bridge JSONL file.
// Lines that do not parse are passed to onBadLine and skipped.
func ReadBridgeTransactions(path string, fn func(model.BridgeTransaction) error, onBadLine func(line int, err error)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record model.BridgeTransaction
		if err := json.Unmarshal(line, &record); err != nil {
			if onBadLine != nil {
				onBadLine(lineNo, err)
			}
			continue
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	return nil
}
