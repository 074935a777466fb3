package storage

import (
	"context"
	"sync"
)

// InMemoryStore is an in-memory implementation of Store.
// This is intended for testing and single-process deployments.
// Production should use PostgresStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]Entry),
	}
}

// Get retrieves the entry for a key.
func (s *InMemoryStore) Get(_ context.Context, key string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, ErrKeyNotFound
	}

	// Return a copy of the value so callers cannot mutate stored bytes.
	cpy := make([]byte, len(e.Value))
	copy(cpy, e.Value)
	return Entry{Value: cpy, Version: e.Version}, nil
}

// Put writes a value unconditionally.
func (s *InMemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpy := make([]byte, len(value))
	copy(cpy, value)

	prev := s.entries[key]
	s.entries[key] = Entry{Value: cpy, Version: prev.Version + 1}
	return nil
}

// CompareAndPut writes a value only if the stored version matches.
func (s *InMemoryStore) CompareAndPut(_ context.Context, key string, value []byte, expected int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.entries[key]
	current := int64(0)
	if ok {
		current = prev.Version
	}

	if current != expected {
		return 0, ErrVersionMismatch
	}

	cpy := make([]byte, len(value))
	copy(cpy, value)

	next := current + 1
	s.entries[key] = Entry{Value: cpy, Version: next}
	return next, nil
}

// Delete removes a key.
func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// Ensure InMemoryStore implements Store interface.
var _ Store = (*InMemoryStore)(nil)
