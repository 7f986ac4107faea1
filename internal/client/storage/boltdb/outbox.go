package boltdb

import (
	"cmp"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"slices"

	"go.etcd.io/bbolt"

	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

// ListJobs returns all outbox jobs ordered by (CreatedAt, Key)
func (s *Storage) ListJobs(ctx context.Context) ([]*models.OutboxJob, error) {
	var jobs []*models.OutboxJob

	err := s.view(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketOutbox)
		if err != nil {
			return err
		}

		return b.ForEach(func(k, v []byte) error {
			job := &models.OutboxJob{}
			if err := json.Unmarshal(v, job); err != nil {
				return fmt.Errorf("failed to decode outbox job: %w", err)
			}
			job.Key = binary.BigEndian.Uint64(k)
			jobs = append(jobs, job)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(jobs, func(a, b *models.OutboxJob) int {
		return cmp.Or(cmp.Compare(a.CreatedAt, b.CreatedAt), cmp.Compare(a.Key, b.Key))
	})

	return jobs, nil
}

// DeleteJobs removes jobs by key. Missing keys are ignored.
func (s *Storage) DeleteJobs(ctx context.Context, keys ...uint64) error {
	if len(keys) == 0 {
		return nil
	}

	return s.update(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketOutbox)
		if err != nil {
			return err
		}

		for _, key := range keys {
			if err := b.Delete(jobKey(key)); err != nil {
				return fmt.Errorf("failed to delete outbox job %d: %w", key, err)
			}
		}

		return nil
	})
}

// CountJobs returns the number of pending jobs
func (s *Storage) CountJobs(ctx context.Context) (int, error) {
	var n int

	err := s.view(func(tx *bbolt.Tx) error {
		b, err := bucket(tx, bucketOutbox)
		if err != nil {
			return err
		}
		n = b.Stats().KeyN
		return nil
	})

	return n, err
}

// putJob добавляет задачу с ключом из последовательности bucket
func putJob(b *bbolt.Bucket, job *models.OutboxJob) error {
	seq, err := b.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to allocate outbox key: %w", err)
	}
	job.Key = seq

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox job: %w", err)
	}

	if err := b.Put(jobKey(seq), data); err != nil {
		return fmt.Errorf("failed to enqueue outbox job: %w", err)
	}

	return nil
}

func jobKey(key uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, key)
	return k
}
