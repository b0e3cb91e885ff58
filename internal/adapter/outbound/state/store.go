package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/lumenshop/storefront/internal/port/outbound"
)

// ErrCorrupt is returned when the state file exists but is not a valid document.
var ErrCorrupt = errors.New("state file is corrupt")

// FileStore is a key/value store backed by a single JSON file.
// Every write re-reads the file under an exclusive lock, applies the change
// and replaces the file atomically (write-tmp, fsync, rename), keeping the
// previous contents in path+".bak". The in-process mutex serializes callers
// within one process; the lock file serializes separate processes.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
	closed bool
	warned bool
}

// NewFileStore creates a FileStore for the given file path.
// The file is created on the first write.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Get returns the value stored under key.
func (s *FileStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return "", false, err
	}

	doc, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Entries[key]
	return v, ok, nil
}

// Set stores value under key and persists the file.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	return s.update(ctx, func(doc *Document) bool {
		if cur, ok := doc.Entries[key]; ok && cur == value {
			return false
		}
		doc.Entries[key] = value
		return true
	})
}

// Delete removes key and persists the file if it was present.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	return s.update(ctx, func(doc *Document) bool {
		if _, ok := doc.Entries[key]; !ok {
			return false
		}
		delete(doc.Entries, key)
		return true
	})
}

// Keys returns all stored keys in ascending order.
func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(doc.Entries))
	for k := range doc.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close marks the store closed. Later operations return outbound.ErrStoreClosed.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Exists returns true if the state file exists on disk.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the configured file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) check(ctx context.Context) error {
	if s.closed {
		return outbound.ErrStoreClosed
	}
	return ctx.Err()
}

// load reads and parses the state file. A missing file yields an empty
// document. Callers must hold s.mu.
func (s *FileStore) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	s.warnPermissions()

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	if doc.Entries == nil {
		doc.Entries = map[string]string{}
	}
	if doc.Version == "" {
		doc.Version = DocumentVersion
	}
	return &doc, nil
}

// warnPermissions logs once if the file is readable by group or others.
// Skipped on Windows where Unix permission bits are not meaningful.
func (s *FileStore) warnPermissions() {
	if s.warned || runtime.GOOS == "windows" {
		return
	}
	s.warned = true
	info, err := os.Stat(s.path)
	if err != nil {
		return
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		s.logger.Warn("state file has too-open permissions, should be 0600",
			"path", s.path, "current_mode", fmt.Sprintf("%04o", mode))
	}
}

// update applies fn to a freshly loaded document and writes the result.
// fn reports whether it changed anything; unchanged documents are not written.
//
// The write sequence is:
//  1. Acquire in-process mutex
//  2. Acquire lock on path+".lock"
//  3. Reload the file and apply fn
//  4. Copy current file to path+".bak"
//  5. Write path+".tmp" with 0600 permissions, fsync, rename over path
func (s *FileStore) update(ctx context.Context, fn func(*Document) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	lockPath := s.path + ".lock"
	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = lf.Close() }()

	if err := lockFile(lf.Fd()); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer unlockFile(lf.Fd()) //nolint:errcheck

	doc, err := s.load()
	if err != nil {
		return err
	}
	if !fn(doc) {
		return nil
	}
	doc.UpdatedAt = time.Now().UTC()

	if current, readErr := os.ReadFile(s.path); readErr == nil {
		if writeErr := os.WriteFile(s.path+".bak", current, 0600); writeErr != nil {
			s.logger.Warn("failed to create backup", "error", writeErr)
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return err
	}

	if err := os.Chmod(s.path, 0600); err != nil {
		s.logger.Warn("failed to set permissions on state file", "error", err)
	}

	s.logger.Debug("state saved", "path", s.path, "entries", len(doc.Entries))
	return nil
}

// writeAtomic writes data to a temp file, fsyncs it, and renames it
// over the target path. On any error the temp file is cleaned up.
func (s *FileStore) writeAtomic(data []byte) error {
	tmpPath := s.path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp to state: %w", err)
	}
	return nil
}

// Compile-time interface verification.
var _ outbound.KeyValueStore = (*FileStore)(nil)
