package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
	"github.com/XavierGuerrero1989/sistema-impo/internal/metrics"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
)

// pendingJob последняя задача для сущности и ключи всех ее задач в outbox
type pendingJob struct {
	job  *models.OutboxJob
	keys []uint64
}

// collapse оставляет одну (последнюю) задачу на сущность.
// Порядок результата совпадает с порядком выживших задач в очереди.
func collapse(jobs []*models.OutboxJob) []pendingJob {
	last := make(map[string]int, len(jobs))
	keys := make(map[string][]uint64, len(jobs))
	for i, j := range jobs {
		k := j.CollapseKey()
		last[k] = i
		keys[k] = append(keys[k], j.Key)
	}

	out := make([]pendingJob, 0, len(last))
	for i, j := range jobs {
		k := j.CollapseKey()
		if last[k] != i {
			continue
		}
		out = append(out, pendingJob{job: j, keys: keys[k]})
	}
	return out
}

// drain отправляет задачи outbox на сервер.
// Ошибка удаленного вызова оставляет задачу в очереди и не прерывает обход.
func (e *Engine) drain(ctx context.Context, log *slog.Logger, token string, res *CycleResult) error {
	jobs, err := e.store.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list outbox jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	pending := collapse(jobs)
	log.Debug("Draining outbox", "jobs", len(jobs), "entities", len(pending))

	for _, p := range pending {
		if ctx.Err() != nil {
			return nil
		}

		var status string
		switch {
		case p.job.EntityType != models.EntityTypeOperacion:
			log.Warn("Discarding outbox job with unknown entity type",
				"entity_type", p.job.EntityType, "entity_id", p.job.EntityID)
			status, err = "discarded", e.store.DeleteJobs(ctx, p.keys...)
			if err == nil {
				res.Discarded++
			}
		case p.job.Op == models.OpDelete:
			status, err = e.sendDelete(ctx, token, p)
		default:
			status, err = e.sendUpsert(ctx, token, p)
		}

		if err != nil {
			status = "failed"
			res.Failed++
			log.Warn("Outbox job failed, will retry next cycle",
				"entity_id", p.job.EntityID, "op", string(p.job.Op), "error", err)
		}
		metrics.OutboxJobs.WithLabelValues(string(p.job.Op), status).Inc()

		switch status {
		case "sent":
			res.Sent++
			res.Superseded += len(p.keys) - 1
		case "skipped":
			res.Skipped++
		}
	}

	return nil
}

func (e *Engine) sendUpsert(ctx context.Context, token string, p pendingJob) (string, error) {
	op, err := e.store.GetOperacion(ctx, p.job.EntityID)
	if errors.Is(err, storage.ErrOperacionNotFound) {
		if err := e.store.DeleteJobs(ctx, p.keys...); err != nil {
			return "", err
		}
		return "skipped", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read operacion: %w", err)
	}

	if _, err := e.remote.SaveOperacion(ctx, token, op); err != nil {
		return "", err
	}

	if err := e.markSynced(ctx, op.ID, op.UpdatedAtLocal); err != nil {
		return "", err
	}
	if err := e.store.DeleteJobs(ctx, p.keys...); err != nil {
		return "", fmt.Errorf("failed to remove sent jobs: %w", err)
	}
	return "sent", nil
}

func (e *Engine) sendDelete(ctx context.Context, token string, p pendingJob) (string, error) {
	var stamp int64 = -1
	op, err := e.store.GetOperacion(ctx, p.job.EntityID)
	switch {
	case err == nil:
		stamp = op.UpdatedAtLocal
	case !errors.Is(err, storage.ErrOperacionNotFound):
		return "", fmt.Errorf("failed to read operacion: %w", err)
	}

	if err := e.remote.DeleteOperacion(ctx, token, p.job.EntityID); err != nil {
		return "", err
	}

	if stamp >= 0 {
		if err := e.markSynced(ctx, p.job.EntityID, stamp); err != nil {
			return "", err
		}
	}
	if err := e.store.DeleteJobs(ctx, p.keys...); err != nil {
		return "", fmt.Errorf("failed to remove sent jobs: %w", err)
	}
	return "sent", nil
}

// markSynced снимает dirty, только если запись не менялась после отправки.
func (e *Engine) markSynced(ctx context.Context, id string, sentAt int64) error {
	_, err := e.store.UpdateOperacion(ctx, id, func(current *models.Operacion) (*models.Operacion, *models.OutboxJob, error) {
		if current == nil || !current.Dirty || current.UpdatedAtLocal != sentAt {
			return nil, nil, nil
		}
		next := current.Clone()
		next.Dirty = false
		return next, nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark operacion synced: %w", err)
	}
	return nil
}
