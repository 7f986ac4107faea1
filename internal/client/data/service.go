package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

// Service is the local record store used by the CLI and the sync engine.
// Each mutation writes the record and its outbox job in one transaction.
type Service struct {
	store storage.OperacionStorage
	now   func() time.Time
}

// Option configures Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new data service
func NewService(store storage.OperacionStorage, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert накладывает поля op поверх сохраненной записи и ставит задачу upsert в outbox.
// op.Data может содержать только изменяемые поля.
func (s *Service) Upsert(ctx context.Context, op *models.Operacion) (*models.Operacion, error) {
	if op == nil || op.ID == "" {
		return nil, invalid(models.FieldID, "must not be empty")
	}

	saved, err := s.store.UpdateOperacion(ctx, op.ID, func(current *models.Operacion) (*models.Operacion, *models.OutboxJob, error) {
		now := s.stamp(current)
		merged := models.MergeOperacion(current, op, now)
		return merged, newJob(op.ID, models.OpUpsert, now), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert operacion %s: %w", op.ID, err)
	}

	return saved, nil
}

// Delete помечает запись удаленной и ставит задачу delete в outbox.
// Отсутствующая запись: no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, err := s.store.UpdateOperacion(ctx, id, func(current *models.Operacion) (*models.Operacion, *models.OutboxJob, error) {
		if current == nil {
			return nil, nil, nil
		}
		now := s.stamp(current)
		next := current.Clone()
		next.Deleted = true
		next.Dirty = true
		next.UpdatedAtLocal = now
		return next, newJob(id, models.OpDelete, now), nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete operacion %s: %w", id, err)
	}

	return nil
}

// GetAll returns records that are not soft-deleted
func (s *Service) GetAll(ctx context.Context) ([]*models.Operacion, error) {
	ops, err := s.store.ListOperaciones(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list operaciones: %w", err)
	}

	active := make([]*models.Operacion, 0, len(ops))
	for _, op := range ops {
		if !op.Deleted {
			active = append(active, op)
		}
	}

	return active, nil
}

// GetByID returns the stored record, deleted or not, or nil when absent
func (s *Service) GetByID(ctx context.Context, id string) (*models.Operacion, error) {
	op, err := s.store.GetOperacion(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrOperacionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get operacion %s: %w", id, err)
	}

	return op, nil
}

// MarkSynced clears the dirty flag. Absent records are ignored.
func (s *Service) MarkSynced(ctx context.Context, id string) error {
	_, err := s.store.UpdateOperacion(ctx, id, func(current *models.Operacion) (*models.Operacion, *models.OutboxJob, error) {
		if current == nil || !current.Dirty {
			return nil, nil, nil
		}
		next := current.Clone()
		next.Dirty = false
		return next, nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark operacion %s synced: %w", id, err)
	}

	return nil
}

// stamp returns the mutation time in epoch ms, strictly after the
// previous local change of the record.
func (s *Service) stamp(current *models.Operacion) int64 {
	now := s.now().UnixMilli()
	if current != nil && now <= current.UpdatedAtLocal {
		now = current.UpdatedAtLocal + 1
	}
	return now
}

func newJob(id string, op models.OpType, createdAt int64) *models.OutboxJob {
	return &models.OutboxJob{
		EntityType: models.EntityTypeOperacion,
		EntityID:   id,
		Op:         op,
		CreatedAt:  createdAt,
	}
}
