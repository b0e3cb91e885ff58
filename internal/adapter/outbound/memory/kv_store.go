// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lumenshop/storefront/internal/port/outbound"
)

// KVStore implements outbound.KeyValueStore with an in-memory map.
// Thread-safe for concurrent access. Contents are lost on exit; used for
// tests and the "memory" storage backend.
type KVStore struct {
	data     map[string]string
	mu       sync.RWMutex
	closed   bool
	writeErr error
}

// NewKVStore creates an empty in-memory key/value store.
func NewKVStore() *KVStore {
	return &KVStore{data: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, outbound.ErrStoreClosed
	}
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return outbound.ErrStoreClosed
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	s.data[key] = value
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return outbound.ErrStoreClosed
	}
	if s.writeErr != nil {
		return s.writeErr
	}
	delete(s.data, key)
	return nil
}

// Keys returns all stored keys in ascending order.
func (s *KVStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, outbound.ErrStoreClosed
	}
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close marks the store closed.
func (s *KVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// FailWrites makes every later Set and Delete return err (for testing).
// Pass nil to restore normal behavior.
func (s *KVStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Compile-time interface verification.
var _ outbound.KeyValueStore = (*KVStore)(nil)
