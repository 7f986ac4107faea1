package storage

import (
	"context"

	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

// UpdateFunc computes the new state of a record from the stored one.
// current is nil when the record does not exist. Returning a nil record
// leaves storage untouched. A non-nil job is appended to the outbox in the
// same transaction as the record write.
type UpdateFunc func(current *models.Operacion) (*models.Operacion, *models.OutboxJob, error)

// OperacionStorage defines interface for the local record table.
type OperacionStorage interface {
	// GetOperacion returns a stored record, deleted ones included.
	// Returns ErrOperacionNotFound if absent.
	GetOperacion(ctx context.Context, id string) (*models.Operacion, error)

	// ListOperaciones returns every stored record, deleted ones included.
	ListOperaciones(ctx context.Context) ([]*models.Operacion, error)

	// UpdateOperacion runs fn and persists its result atomically.
	// Returns the record as written, or the current one when fn wrote nothing.
	UpdateOperacion(ctx context.Context, id string, fn UpdateFunc) (*models.Operacion, error)
}

// OutboxStorage defines interface for the pending remote actions queue.
type OutboxStorage interface {
	// ListJobs returns all jobs ordered by (CreatedAt, Key)
	ListJobs(ctx context.Context) ([]*models.OutboxJob, error)

	// DeleteJobs removes jobs by key. Missing keys are ignored.
	DeleteJobs(ctx context.Context, keys ...uint64) error

	// CountJobs returns the number of pending jobs
	CountJobs(ctx context.Context) (int, error)
}

// LocalStorage groups everything the client keeps on disk.
type LocalStorage interface {
	OperacionStorage
	OutboxStorage
	MetadataStorage
	AuthStorage
	Close() error
}
