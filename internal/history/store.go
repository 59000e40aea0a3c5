// Package history records finished translations in a JSONL file shared by
// the daemon and the CLI. Every operation holds an flock on a sidecar lock
// file, so the two processes never interleave writes.
package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/jmylchreest/poptrans/internal/model"
)

// SchemaVersion is the current history file schema version.
const SchemaVersion = 1

// DefaultLockTimeout bounds how long an operation waits for the file lock.
const DefaultLockTimeout = 5 * time.Second

const maxLineSize = 1024 * 1024

// ErrLockTimeout is returned when the history lock could not be acquired.
var ErrLockTimeout = errors.New("timed out waiting for history lock")

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	PoptransSchemaVersion int   `json:"poptrans_schema_version"`
	CreatedAt             int64 `json:"created_at"`
}

// Store is a history file. It holds no open file handles between calls.
type Store struct {
	// mu serializes callers in this process; flock only excludes other
	// processes.
	mu          sync.Mutex
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
	logger      *slog.Logger
}

// Open returns a store for path, creating the parent directory.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &Store{
		path:        path,
		lock:        flock.New(path + ".lock"),
		lockTimeout: DefaultLockTimeout,
		logger:      logger,
	}, nil
}

// Path returns the history file path.
func (s *Store) Path() string {
	return s.path
}

// Append adds an entry, writing the schema header first if the file is new.
func (s *Store) Append(e *model.Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return s.withLock(false, func() error {
		f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", s.path, err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if info.Size() == 0 {
			if err := writeHeader(&buf); err != nil {
				return err
			}
		}
		buf.Write(data)
		buf.WriteByte('\n')

		if _, err := f.Write(buf.Bytes()); err != nil {
			return err
		}
		return f.Sync()
	})
}

// Load returns all entries, oldest first. A missing file is empty history.
// Malformed lines are skipped.
func (s *Store) Load() ([]model.Entry, error) {
	var entries []model.Entry
	err := s.withLock(true, func() error {
		var err error
		entries, err = s.read()
		return err
	})
	return entries, err
}

// QueryOptions filters Query results.
type QueryOptions struct {
	Since time.Time // zero = no lower bound
	Limit int       // 0 = no limit
}

// Query returns matching entries, newest first.
func (s *Store) Query(opts QueryOptions) ([]model.Entry, error) {
	all, err := s.Load()
	if err != nil {
		return nil, err
	}

	out := make([]model.Entry, 0, len(all))
	for _, e := range all {
		if !opts.Since.IsZero() && e.Time().Before(opts.Since) {
			continue
		}
		out = append(out, e)
	}
	// IDs are ULIDs, so they order entries within the same second.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].ID > out[j].ID
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// Clear removes all entries, leaving just the schema header.
func (s *Store) Clear() error {
	return s.withLock(false, func() error {
		return s.rewrite(nil)
	})
}

// Prune keeps the newest max entries and reports how many were removed.
// max <= 0 keeps everything.
func (s *Store) Prune(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	removed := 0
	err := s.withLock(false, func() error {
		entries, err := s.read()
		if err != nil {
			return err
		}
		if len(entries) <= max {
			return nil
		}
		removed = len(entries) - max
		return s.rewrite(entries[removed:])
	})
	if err == nil && removed > 0 {
		s.logger.Debug("pruned history", "removed", removed, "kept", max)
	}
	return removed, err
}

func (s *Store) withLock(shared bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.lockTimeout)
	defer cancel()

	var locked bool
	var err error
	if shared {
		locked, err = s.lock.TryRLockContext(ctx, 50*time.Millisecond)
	} else {
		locked, err = s.lock.TryLockContext(ctx, 50*time.Millisecond)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return fmt.Errorf("failed to acquire history lock: %w", err)
	}
	if !locked {
		return ErrLockTimeout
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release history lock", "error", err)
		}
	}()

	return fn()
}

// read parses the file. Callers hold the lock.
func (s *Store) read() ([]model.Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	var entries []model.Entry
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.PoptransSchemaVersion > 0 {
				if header.PoptransSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported history schema version %d (max: %d)",
						header.PoptransSchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var e model.Entry
		if err := json.Unmarshal(line, &e); err != nil || e.Validate() != nil {
			s.logger.Debug("skipping malformed history line", "line", lineNum)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("error reading %s: %w", s.path, err)
	}
	return entries, nil
}

// rewrite atomically replaces the file with entries. Callers hold the lock.
func (s *Store) rewrite(entries []model.Entry) error {
	var buf bytes.Buffer
	if err := writeHeader(&buf); err != nil {
		return err
	}
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

func writeHeader(buf *bytes.Buffer) error {
	data, err := json.Marshal(schemaHeader{
		PoptransSchemaVersion: SchemaVersion,
		CreatedAt:             time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	buf.Write(data)
	buf.WriteByte('\n')
	return nil
}
