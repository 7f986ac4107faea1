package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/XavierGuerrero1989/sistema-impo/internal/metrics"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
	"github.com/XavierGuerrero1989/sistema-impo/internal/server/storage"
	"github.com/XavierGuerrero1989/sistema-impo/internal/validation"
	"github.com/XavierGuerrero1989/sistema-impo/pkg/api"
)

// OperacionesHandler обслуживает общую коллекцию документов операций
type OperacionesHandler struct {
	logger  *slog.Logger
	storage storage.OperacionStorage
	now     func() time.Time
}

// NewOperacionesHandler creates a new operaciones handler
func NewOperacionesHandler(logger *slog.Logger, storage storage.OperacionStorage) *OperacionesHandler {
	return &OperacionesHandler{
		logger:  logger,
		storage: storage,
		now:     time.Now,
	}
}

// Save обрабатывает PUT /api/v1/operaciones/{id}.
// Переданные поля сливаются с документом, updated_at ставит сервер.
func (h *OperacionesHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, _ := GetUserID(ctx)

	id := chi.URLParam(r, "id")
	if err := validation.ValidateOperacionID(id); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	var req api.SaveOperacionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode operacion", slog.String("operacion_id", id), slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Data == nil {
		sendError(h.logger, w, "data is required", http.StatusBadRequest)
		return
	}

	doc, err := h.storage.MergeOperacion(ctx, id, models.CleanPayload(req.Data), userID, h.now().UnixMilli())
	if err != nil {
		metrics.DocumentWrites.WithLabelValues("upsert", "error").Inc()
		h.logger.ErrorContext(ctx, "failed to save operacion", slog.String("operacion_id", id), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}
	metrics.DocumentWrites.WithLabelValues("upsert", "ok").Inc()

	h.logger.DebugContext(ctx, "operacion saved",
		slog.String("operacion_id", id),
		slog.String("user_id", userID),
		slog.Int64("updated_at", doc.UpdatedAt))

	sendJSON(h.logger, w, doc, http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/operaciones/{id}.
// Повторное удаление тоже отвечает 204.
func (h *OperacionesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	err := h.storage.DeleteOperacion(ctx, id)
	switch {
	case errors.Is(err, storage.ErrOperacionNotFound):
		metrics.DocumentWrites.WithLabelValues("delete", "absent").Inc()
	case err != nil:
		metrics.DocumentWrites.WithLabelValues("delete", "error").Inc()
		h.logger.ErrorContext(ctx, "failed to delete operacion", slog.String("operacion_id", id), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	default:
		metrics.DocumentWrites.WithLabelValues("delete", "ok").Inc()
		h.logger.DebugContext(ctx, "operacion deleted", slog.String("operacion_id", id))
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get обрабатывает GET /api/v1/operaciones/{id}
func (h *OperacionesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	doc, err := h.storage.GetOperacion(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrOperacionNotFound) {
			sendError(h.logger, w, "operacion not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get operacion", slog.String("operacion_id", id), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, doc, http.StatusOK)
}

// List обрабатывает GET /api/v1/operaciones
func (h *OperacionesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.storage.ListOperaciones(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list operaciones", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.ListOperacionesResponse{
		Operaciones: docs,
		ServerTime:  h.now().UnixMilli(),
	}, http.StatusOK)
}
