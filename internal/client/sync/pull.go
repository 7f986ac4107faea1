package sync

import (
	"context"
	"log/slog"

	"github.com/XavierGuerrero1989/sistema-impo/internal/metrics"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
	"github.com/XavierGuerrero1989/sistema-impo/pkg/api"
)

const (
	pullApplied     = "applied"
	pullKeptLocal   = "kept_local"
	pullKeptDeleted = "kept_deleted"
)

// pull загружает все документы пользователя и применяет last-write-wins
// по updatedAt сервера против updatedAtLocal.
func (e *Engine) pull(ctx context.Context, log *slog.Logger, token string, res *CycleResult) {
	docs, err := e.remote.ListOperaciones(ctx, token)
	if err != nil {
		res.PullErr = err
		log.Warn("Pull failed", "error", err)
		return
	}

	for i := range docs {
		doc := &docs[i]
		if doc.ID == "" {
			continue
		}
		res.Pulled++

		decision, err := e.apply(ctx, doc)
		if err != nil {
			log.Error("Failed to apply remote operacion", "id", doc.ID, "error", err)
			continue
		}
		metrics.PulledRecords.WithLabelValues(decision).Inc()

		switch decision {
		case pullApplied:
			res.Applied++
		case pullKeptLocal:
			res.KeptLocal++
		case pullKeptDeleted:
			res.KeptDelete++
		}
	}
}

func (e *Engine) apply(ctx context.Context, doc *api.OperacionDocument) (string, error) {
	decision := pullKeptLocal
	_, err := e.store.UpdateOperacion(ctx, doc.ID, func(current *models.Operacion) (*models.Operacion, *models.OutboxJob, error) {
		var local int64
		if current != nil {
			// неотправленное локальное удаление не воскрешается
			if current.Dirty && current.Deleted {
				decision = pullKeptDeleted
				return nil, nil, nil
			}
			local = current.UpdatedAtLocal
		}
		if doc.UpdatedAt <= local {
			decision = pullKeptLocal
			return nil, nil, nil
		}

		decision = pullApplied
		return &models.Operacion{
			ID:             doc.ID,
			Data:           models.CleanPayload(doc.Data),
			UpdatedAtLocal: doc.UpdatedAt,
		}, nil, nil
	})
	return decision, err
}
