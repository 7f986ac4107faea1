package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/data"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/netstate"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/session"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage/boltdb"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
	"github.com/XavierGuerrero1989/sistema-impo/pkg/api"
)

type proberFunc func(ctx context.Context) (*api.HealthResponse, error)

func (f proberFunc) Health(ctx context.Context) (*api.HealthResponse, error) { return f(ctx) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startScheduler запускает Run и возвращает функцию остановки
func startScheduler(t *testing.T, s *Scheduler) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	stop := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("scheduler did not stop")
		}
	}
	t.Cleanup(stop)
	return stop
}

func cycles(env *testEnv) int {
	return len(env.remote.ListOperacionesCalls())
}

func TestScheduler_SyncsWhenActorAppears(t *testing.T) {
	env := newTestEnv(t)
	sessions := session.NewManager(env.store, nil, discardLogger())

	sched := NewScheduler(env.engine, sessions, nil, time.Hour, discardLogger())
	startScheduler(t, sched)

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, cycles(env))

	sessions.Set(env.actor)
	assert.Eventually(t, func() bool { return cycles(env) == 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_StartsWithRestoredActor(t *testing.T) {
	env := newTestEnv(t)
	sessions := session.NewManager(env.store, nil, discardLogger())
	sessions.Set(env.actor)

	sched := NewScheduler(env.engine, sessions, nil, 20*time.Millisecond, discardLogger())
	startScheduler(t, sched)

	// первый цикл сразу, дальше по таймеру
	assert.Eventually(t, func() bool { return cycles(env) >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_StopsWhenActorGone(t *testing.T) {
	env := newTestEnv(t)
	sessions := session.NewManager(env.store, nil, discardLogger())

	sched := NewScheduler(env.engine, sessions, nil, 10*time.Millisecond, discardLogger())
	startScheduler(t, sched)

	sessions.Set(env.actor)
	require.Eventually(t, func() bool { return cycles(env) >= 2 }, 2*time.Second, 5*time.Millisecond)

	sessions.Clear()
	time.Sleep(50 * time.Millisecond)
	n := cycles(env)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, n, cycles(env))
}

func TestScheduler_TokenRefreshKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	sessions := session.NewManager(env.store, nil, discardLogger())

	sched := NewScheduler(env.engine, sessions, nil, time.Hour, discardLogger())
	startScheduler(t, sched)

	sessions.Set(env.actor)
	require.Eventually(t, func() bool { return cycles(env) == 1 }, time.Second, 5*time.Millisecond)

	renewed := *env.actor
	renewed.AccessToken = "renewed-token"
	sessions.Set(&renewed)

	// тот же пользователь: новый немедленный цикл не запускается
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, cycles(env))

	// другой пользователь: сессия перезапускается
	other := *env.actor
	other.UserID = "user-2"
	sessions.Set(&other)
	assert.Eventually(t, func() bool { return cycles(env) == 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_OfflineSkipsAndReconnectTriggers(t *testing.T) {
	env := newTestEnv(t)
	sessions := session.NewManager(env.store, nil, discardLogger())

	var up atomic.Bool
	monitor := netstate.NewMonitor(proberFunc(func(ctx context.Context) (*api.HealthResponse, error) {
		if !up.Load() {
			return nil, errors.New("connection refused")
		}
		return &api.HealthResponse{Status: "ok"}, nil
	}), time.Hour, discardLogger())
	require.False(t, monitor.Probe(context.Background()))

	sched := NewScheduler(env.engine, sessions, monitor, 10*time.Millisecond, discardLogger())
	startScheduler(t, sched)

	sessions.Set(env.actor)
	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, cycles(env))

	up.Store(true)
	require.True(t, monitor.Probe(context.Background()))
	assert.Eventually(t, func() bool { return cycles(env) >= 1 }, time.Second, 5*time.Millisecond)
}

func TestNewScheduler_DefaultInterval(t *testing.T) {
	env := newTestEnv(t)
	sched := NewScheduler(env.engine, session.NewManager(env.store, nil, discardLogger()), nil, 0, discardLogger())
	assert.Equal(t, DefaultInterval, sched.interval)
}

func TestScheduler_CommandWritesWhileDaemonRuns(t *testing.T) {
	env := newTestEnv(t)
	sessions := session.NewManager(env.store, nil, discardLogger())
	sessions.Set(env.actor)

	sched := NewScheduler(env.engine, sessions, nil, 5*time.Millisecond, discardLogger())
	startScheduler(t, sched)
	require.Eventually(t, func() bool { return cycles(env) >= 1 }, time.Second, 5*time.Millisecond)

	// отдельная команда CLI открывает тот же файл своим экземпляром
	ctx := context.Background()
	cliStore, err := boltdb.New(ctx, env.path)
	require.NoError(t, err)
	defer cliStore.Close()
	cliSvc := data.NewService(cliStore)

	for i := range 5 {
		_, err := cliSvc.Upsert(ctx, &models.Operacion{
			ID:   fmt.Sprintf("op_%d", i),
			Data: map[string]any{models.FieldProveedor: "ACME"},
		})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		for i := range 5 {
			if _, ok := env.server.get(fmt.Sprintf("op_%d", i)); !ok {
				return false
			}
		}
		n, err := cliStore.CountJobs(ctx)
		return err == nil && n == 0
	}, 3*time.Second, 10*time.Millisecond)

	op, err := cliStore.GetOperacion(ctx, "op_4")
	require.NoError(t, err)
	assert.Equal(t, "ACME", op.String(models.FieldProveedor))
}
