package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/session"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
	"github.com/XavierGuerrero1989/sistema-impo/internal/metrics"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
	"github.com/XavierGuerrero1989/sistema-impo/pkg/api"
)

//go:generate moq -out remote_mock.go . RemoteService

// RemoteService is the server-side record store
type RemoteService interface {
	SaveOperacion(ctx context.Context, token string, op *models.Operacion) (*api.OperacionDocument, error)
	DeleteOperacion(ctx context.Context, token, id string) error
	ListOperaciones(ctx context.Context, token string) ([]api.OperacionDocument, error)
}

// Store is the local state the engine reconciles
type Store interface {
	storage.OperacionStorage
	storage.OutboxStorage
	storage.MetadataStorage
}

var (
	// ErrCycleInProgress another cycle is running; nothing was done
	ErrCycleInProgress = errors.New("sync cycle already in progress")

	// ErrNoActor синхронизация без аутентифицированного пользователя невозможна
	ErrNoActor = errors.New("no authenticated actor")
)

const (
	stateIdle int32 = iota
	stateRunning
)

// CycleResult contains sync cycle results
type CycleResult struct {
	PullErr    error  // ошибка pull фазы, если была
	Status     string // storage.SyncStatus*
	Sent       int    // задачи, подтвержденные сервером
	Failed     int    // задачи, оставшиеся в outbox из-за ошибки
	Skipped    int    // upsert для отсутствующей записи
	Discarded  int    // задачи с неизвестным entity type
	Superseded int    // задачи, поглощенные более поздней задачей той же записи
	Pulled     int    // документов получено с сервера
	Applied    int    // документов записано локально
	KeptLocal  int    // локальная версия новее или равна
	KeptDelete int    // локальное неотправленное удаление
	Duration   time.Duration
}

// Engine drains the outbox to the server and then pulls remote state.
// At most one cycle runs at a time.
type Engine struct {
	remote    RemoteService
	store     Store
	logger    *slog.Logger
	now       func() time.Time
	listeners map[uint64]func(Event)
	nextID    uint64
	state     atomic.Int32
	mu        sync.Mutex
}

// NewEngine creates a new sync engine
func NewEngine(remote RemoteService, store Store, logger *slog.Logger) *Engine {
	return &Engine{
		remote:    remote,
		store:     store,
		logger:    logger,
		now:       time.Now,
		listeners: make(map[uint64]func(Event)),
	}
}

// Running reports whether a cycle is in progress
func (e *Engine) Running() bool {
	return e.state.Load() == stateRunning
}

// RunCycle performs one drain + pull cycle on behalf of actor.
// Returns ErrCycleInProgress immediately if another cycle is running.
// Remote failures are recorded in the result; only local storage failures
// are returned as errors.
func (e *Engine) RunCycle(ctx context.Context, actor *session.Actor) (*CycleResult, error) {
	if actor == nil {
		return nil, ErrNoActor
	}
	if !e.state.CompareAndSwap(stateIdle, stateRunning) {
		return nil, ErrCycleInProgress
	}
	defer e.state.Store(stateIdle)

	start := e.now()
	e.emit(Event{Type: EventCycleStarted, At: start})

	log := e.logger.With("user_id", actor.UserID)
	log.Debug("Starting sync cycle")

	result := &CycleResult{}
	err := e.drain(ctx, log, actor.AccessToken, result)
	if err == nil && ctx.Err() == nil {
		e.pull(ctx, log, actor.AccessToken, result)
	}
	if err == nil {
		err = ctx.Err()
	}

	result.Duration = e.now().Sub(start)
	result.Status = cycleStatus(result, err)

	if saveErr := e.store.SaveLastSync(context.WithoutCancel(ctx), storage.SyncInfo{
		At:     e.now().UnixMilli(),
		Status: result.Status,
	}); saveErr != nil {
		log.Warn("Failed to save last sync info", "error", saveErr)
	}
	if n, countErr := e.store.CountJobs(context.WithoutCancel(ctx)); countErr == nil {
		metrics.OutboxBacklog.Set(float64(n))
	}
	metrics.SyncCycles.WithLabelValues(result.Status).Inc()
	metrics.SyncCycleDuration.Observe(result.Duration.Seconds())

	log.Info("Sync cycle completed",
		"status", result.Status,
		"sent", result.Sent,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"discarded", result.Discarded,
		"pulled", result.Pulled,
		"applied", result.Applied,
		"duration_ms", result.Duration.Milliseconds())

	e.emit(Event{Type: EventCycleEnded, At: e.now(), Result: result, Err: err})

	if err != nil {
		return result, fmt.Errorf("sync cycle: %w", err)
	}
	return result, nil
}

func cycleStatus(r *CycleResult, err error) string {
	switch {
	case err != nil:
		return storage.SyncStatusFailed
	case r.PullErr != nil && r.Sent == 0:
		return storage.SyncStatusFailed
	case r.PullErr != nil || r.Failed > 0:
		return storage.SyncStatusPartial
	default:
		return storage.SyncStatusOK
	}
}
