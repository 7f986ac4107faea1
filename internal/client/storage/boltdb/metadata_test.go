package boltdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
)

func TestSaveAndGetLastSync(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	// До первой синхронизации нулевое значение
	info, err := store.GetLastSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncInfo{}, info)

	expected := storage.SyncInfo{At: 1700000000123, Status: storage.SyncStatusPartial}
	require.NoError(t, store.SaveLastSync(ctx, expected))

	info, err = store.GetLastSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, info)

	// Перезапись
	expected = storage.SyncInfo{At: 1700000000999, Status: storage.SyncStatusOK}
	require.NoError(t, store.SaveLastSync(ctx, expected))

	info, err = store.GetLastSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, expected, info)
}

func TestLastSync_BucketMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)

	err := store.update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(bucketMeta)
	})
	require.NoError(t, err)

	_, err = store.GetLastSync(ctx)
	assert.ErrorContains(t, err, "meta bucket not found")

	err = store.SaveLastSync(ctx, storage.SyncInfo{At: 1})
	assert.ErrorContains(t, err, "meta bucket not found")
}
