package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
)

var (
	keyLastSyncAt     = []byte("last_sync_at")
	keyLastSyncStatus = []byte("last_sync_status")
)

// SaveLastSync saves the time and status of the last finished sync cycle
func (s *Storage) SaveLastSync(ctx context.Context, info storage.SyncInfo) error {
	return s.update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMeta)
		if err != nil {
			return err
		}

		atBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(atBytes, uint64(info.At))

		if err := b.Put(keyLastSyncAt, atBytes); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}
		if err := b.Put(keyLastSyncStatus, []byte(info.Status)); err != nil {
			return fmt.Errorf("failed to save last sync status: %w", err)
		}

		return nil
	})
}

// GetLastSync retrieves the last sync info
// Returns zero SyncInfo if no sync has been performed yet
func (s *Storage) GetLastSync(ctx context.Context) (storage.SyncInfo, error) {
	var info storage.SyncInfo

	err := s.view(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketMeta)
		if err != nil {
			return err
		}

		if atBytes := b.Get(keyLastSyncAt); len(atBytes) == 8 {
			info.At = int64(binary.BigEndian.Uint64(atBytes))
		}
		if status := b.Get(keyLastSyncStatus); status != nil {
			info.Status = string(status)
		}

		return nil
	})
	if err != nil {
		return storage.SyncInfo{}, fmt.Errorf("failed to get last sync: %w", err)
	}

	return info, nil
}
