package storage

import "context"

// Sync status values stored in metadata
const (
	SyncStatusOK      = "ok"
	SyncStatusPartial = "partial"
	SyncStatusFailed  = "failed"
)

// SyncInfo describes the last finished sync cycle.
type SyncInfo struct {
	Status string `json:"status"`
	At     int64  `json:"at"` // epoch ms
}

// MetadataStorage defines interface for storing client metadata
type MetadataStorage interface {
	// SaveLastSync saves the time and status of the last finished sync cycle
	SaveLastSync(ctx context.Context, info SyncInfo) error

	// GetLastSync retrieves the last sync info
	// Returns zero SyncInfo if no sync has been performed yet
	GetLastSync(ctx context.Context) (SyncInfo, error)
}
