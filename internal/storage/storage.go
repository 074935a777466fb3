// Package storage provides the durable key-value store boundary used for
// commute definitions, alarm state, and adjustment history. Values are
// whole JSON blobs under fixed string keys; every entry carries a version
// for optimistic concurrency.
package storage

import (
	"context"
	"errors"
)

// Store errors.
var (
	// ErrKeyNotFound is returned when the key has no stored value.
	ErrKeyNotFound = errors.New("key not found")

	// ErrVersionMismatch is returned by CompareAndPut when the stored
	// version differs from the expected one.
	ErrVersionMismatch = errors.New("version mismatch")
)

// Entry is a stored value together with its version.
type Entry struct {
	Value   []byte
	Version int64
}

// Store defines the interface for durable key-value persistence.
// Reads and writes are whole-value; there are no partial updates.
type Store interface {
	// Get retrieves the entry for a key.
	// Returns ErrKeyNotFound if the key has never been written.
	Get(ctx context.Context, key string) (Entry, error)

	// Put writes a value unconditionally, creating the key if needed.
	Put(ctx context.Context, key string, value []byte) error

	// CompareAndPut writes a value only if the stored version matches the
	// expected one. An expected version of 0 means the key must not exist
	// yet. Returns the new version on success, ErrVersionMismatch otherwise.
	CompareAndPut(ctx context.Context, key string, value []byte, expected int64) (int64, error)

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
