// Package eventlog is the analyzer's append-only persistent record
// store. Each line is a self-contained JSON record; lines are never
// rewritten or deleted. Growth is unbounded; compaction and rotation
// are deliberately out of scope.
package eventlog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"aegismesh/pkg/telemetry"
)

// DefaultFetchLimit is the record count returned when the caller
// supplies none.
const DefaultFetchLimit = 200

// maxLineBytes bounds a single record during reads; longer lines are
// treated as malformed.
const maxLineBytes = 1 << 20

// ScoredRecord wraps an event together with its risk score as the
// second log line written per ingested event.
type ScoredRecord struct {
	ScoredEvent telemetry.Event `json:"scored_event"`
}

// Store appends JSON-lines records to a single file. Appends are
// synchronous on the ingestion path; a failed write is retried once
// against a reopened file and then dropped, reported but never fatal.
type Store struct {
	mu   sync.Mutex
	path string
	file *os.File
	log  *zap.Logger
}

// Open creates the log directory if needed and opens the store for
// appending.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	return &Store{path: path, file: f, log: logger}, nil
}

// Append marshals the record and writes it as one line. The error is
// returned for accounting but callers treat it as non-fatal.
func (s *Store) Append(record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("eventlog: marshal record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.file.Write(data)
	if err == nil {
		return nil
	}
	s.log.Warn("log append failed, retrying once", zap.Error(err))

	// One reopen-and-retry, then drop.
	if err := s.reopen(); err != nil {
		return fmt.Errorf("eventlog: reopen after failed append: %w", err)
	}
	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("eventlog: append dropped after retry: %w", err)
	}
	return nil
}

// Fetch returns the most recently appended limit records in reverse
// append order. A zero limit returns an empty list, a negative limit
// the default. Malformed and over-long lines are skipped silently.
func (s *Store) Fetch(limit int) ([]json.RawMessage, error) {
	if limit < 0 {
		limit = DefaultFetchLimit
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("eventlog: open for read: %w", err)
	}
	defer f.Close()

	var records []json.RawMessage
	reader := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := readLine(reader)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("eventlog: read: %w", err)
		}
		if line == nil || !json.Valid(line) {
			continue
		}
		records = append(records, json.RawMessage(line))
	}

	// Last written first.
	out := make([]json.RawMessage, 0, limit)
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}
	return out, nil
}

// Close releases the underlying file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// readLine accumulates one line regardless of length. Lines beyond
// maxLineBytes are fully consumed and returned as nil so one oversized
// record cannot block every record behind it.
func readLine(r *bufio.Reader) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		frag, isPrefix, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		if !tooLong {
			line = append(line, frag...)
			if len(line) > maxLineBytes {
				tooLong = true
				line = nil
			}
		}
		if !isPrefix {
			return line, nil
		}
	}
}

func (s *Store) reopen() error {
	_ = s.file.Close()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	s.file = f
	return nil
}
