package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwake/railwake/internal/storage"
)

func TestInMemoryStore_GetMissing(t *testing.T) {
	store := storage.NewInMemoryStore()

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestInMemoryStore_PutAndGet(t *testing.T) {
	store := storage.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte(`{"a":1}`)))

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), entry.Value)
	assert.Equal(t, int64(1), entry.Version)

	require.NoError(t, store.Put(ctx, "k", []byte(`{"a":2}`)))
	entry, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.Version)
}

func TestInMemoryStore_CompareAndPut(t *testing.T) {
	store := storage.NewInMemoryStore()
	ctx := context.Background()

	// Version 0 means "create".
	v, err := store.CompareAndPut(ctx, "k", []byte("one"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	// Creating again must fail.
	_, err = store.CompareAndPut(ctx, "k", []byte("two"), 0)
	assert.ErrorIs(t, err, storage.ErrVersionMismatch)

	// Stale version must fail.
	_, err = store.CompareAndPut(ctx, "k", []byte("two"), 99)
	assert.ErrorIs(t, err, storage.ErrVersionMismatch)

	// Matching version succeeds and bumps.
	v, err = store.CompareAndPut(ctx, "k", []byte("two"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	entry, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), entry.Value)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := storage.NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	// Deleting an absent key is fine.
	require.NoError(t, store.Delete(ctx, "k"))
}
