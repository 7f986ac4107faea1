package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

// GetOperacion returns a stored record, deleted ones included
func (s *Storage) GetOperacion(ctx context.Context, id string) (*models.Operacion, error) {
	var op *models.Operacion

	err := s.view(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketOperaciones)
		if err != nil {
			return err
		}

		op, err = getOperacion(b, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, storage.ErrOperacionNotFound
	}

	return op, nil
}

// ListOperaciones returns every stored record, deleted ones included
func (s *Storage) ListOperaciones(ctx context.Context) ([]*models.Operacion, error) {
	var ops []*models.Operacion

	err := s.view(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketOperaciones)
		if err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			op, err := decodeOperacion(v)
			if err != nil {
				return fmt.Errorf("failed to decode operacion %s: %w", k, err)
			}
			ops = append(ops, op)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return ops, nil
}

// UpdateOperacion читает запись, вызывает fn и сохраняет результат
// вместе с задачей outbox в одной транзакции.
func (s *Storage) UpdateOperacion(ctx context.Context, id string, fn storage.UpdateFunc) (*models.Operacion, error) {
	var result *models.Operacion

	err := s.update(func(tx *bbolt.Tx) error {
		ops, err := bucket(tx, bucketOperaciones)
		if err != nil {
			return err
		}

		current, err := getOperacion(ops, id)
		if err != nil {
			return err
		}

		next, job, err := fn(current)
		if err != nil {
			return err
		}
		if next == nil {
			result = current
			return nil
		}
		if next.ID != id {
			return fmt.Errorf("operacion id mismatch: %q != %q", next.ID, id)
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal operacion: %w", err)
		}
		if err := ops.Put([]byte(id), data); err != nil {
			return fmt.Errorf("failed to save operacion: %w", err)
		}

		if job != nil {
			outbox, err := bucket(tx, bucketOutbox)
			if err != nil {
				return err
			}
			if err := putJob(outbox, job); err != nil {
				return err
			}
		}

		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func getOperacion(b *bbolt.Bucket, id string) (*models.Operacion, error) {
	v := b.Get([]byte(id))
	if v == nil {
		return nil, nil
	}

	op, err := decodeOperacion(v)
	if err != nil {
		return nil, fmt.Errorf("failed to decode operacion %s: %w", id, err)
	}

	return op, nil
}

func decodeOperacion(v []byte) (*models.Operacion, error) {
	op := &models.Operacion{}
	if err := json.Unmarshal(v, op); err != nil {
		return nil, err
	}
	if op.Data == nil {
		op.Data = map[string]any{}
	}
	return op, nil
}
