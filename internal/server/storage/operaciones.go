package storage

import (
	"context"

	"github.com/XavierGuerrero1989/sistema-impo/pkg/api"
)

// OperacionStorage defines the shared document collection of operaciones
type OperacionStorage interface {
	// MergeOperacion накладывает data поверх сохраненного документа (shallow merge)
	// или создает его. updated_at строго растет для каждого документа.
	MergeOperacion(ctx context.Context, id string, data map[string]any, userID string, now int64) (*api.OperacionDocument, error)

	// GetOperacion returns ErrOperacionNotFound if the document doesn't exist
	GetOperacion(ctx context.Context, id string) (*api.OperacionDocument, error)

	// ListOperaciones returns every document ordered by id
	ListOperaciones(ctx context.Context) ([]api.OperacionDocument, error)

	// DeleteOperacion removes the document
	// Returns ErrOperacionNotFound if the document doesn't exist
	DeleteOperacion(ctx context.Context, id string) error
}
