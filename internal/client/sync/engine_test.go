package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/data"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/session"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage/boltdb"
	"github.com/XavierGuerrero1989/sistema-impo/internal/models"
	"github.com/XavierGuerrero1989/sistema-impo/pkg/api"
)

var errServerDown = errors.New("server unavailable")

// fakeServer хранит документы в памяти; updatedAt берется из собственного
// счетчика, который заведомо меньше локальных меток времени.
type fakeServer struct {
	docs  map[string]api.OperacionDocument
	clock int64
	mu    sync.Mutex
}

func newFakeServer() (*fakeServer, *RemoteServiceMock) {
	srv := &fakeServer{docs: map[string]api.OperacionDocument{}, clock: 1000}
	remote := &RemoteServiceMock{
		SaveOperacionFunc: func(ctx context.Context, token string, op *models.Operacion) (*api.OperacionDocument, error) {
			srv.mu.Lock()
			defer srv.mu.Unlock()

			srv.clock++
			doc := srv.docs[op.ID]
			if doc.Data == nil {
				doc.Data = map[string]any{}
				doc.CreatedAt = srv.clock
			}
			maps.Copy(doc.Data, models.CleanPayload(op.Data))
			doc.ID = op.ID
			doc.UpdatedAt = srv.clock
			srv.docs[op.ID] = doc
			return &doc, nil
		},
		DeleteOperacionFunc: func(ctx context.Context, token, id string) error {
			srv.mu.Lock()
			defer srv.mu.Unlock()

			delete(srv.docs, id)
			return nil
		},
		ListOperacionesFunc: func(ctx context.Context, token string) ([]api.OperacionDocument, error) {
			srv.mu.Lock()
			defer srv.mu.Unlock()

			out := make([]api.OperacionDocument, 0, len(srv.docs))
			for _, d := range srv.docs {
				d.Data = maps.Clone(d.Data)
				out = append(out, d)
			}
			return out, nil
		},
	}
	return srv, remote
}

func (s *fakeServer) get(id string) (api.OperacionDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	return d, ok
}

type testEnv struct {
	engine *Engine
	store  *boltdb.Storage
	svc    *data.Service
	server *fakeServer
	remote *RemoteServiceMock
	actor  *session.Actor
	now    time.Time
	path   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	path := filepath.Join(t.TempDir(), "client.db")
	store, err := boltdb.New(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{
		path:  path,
		store: store,
		now:   time.UnixMilli(1_700_000_000_000),
		actor: &session.Actor{UserID: "user-1", Username: "ana", AccessToken: "access-token"},
	}
	env.svc = data.NewService(store, data.WithClock(func() time.Time { return env.now }))
	env.server, env.remote = newFakeServer()
	env.engine = NewEngine(env.remote, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	env.engine.now = func() time.Time { return env.now }

	return env
}

func (env *testEnv) upsert(t *testing.T, id string, fields map[string]any) *models.Operacion {
	t.Helper()
	op, err := env.svc.Upsert(context.Background(), &models.Operacion{ID: id, Data: fields})
	require.NoError(t, err)
	return op
}

func (env *testEnv) local(t *testing.T, id string) *models.Operacion {
	t.Helper()
	op, err := env.store.GetOperacion(context.Background(), id)
	require.NoError(t, err)
	return op
}

func (env *testEnv) jobs(t *testing.T) []*models.OutboxJob {
	t.Helper()
	jobs, err := env.store.ListJobs(context.Background())
	require.NoError(t, err)
	return jobs
}

func TestRunCycle_NoActor(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.RunCycle(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoActor)
	assert.Nil(t, res)
	assert.Empty(t, env.remote.ListOperacionesCalls())
}

func TestRunCycle_CreateAndSync(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	created := env.upsert(t, "op_1", map[string]any{"proveedor": "ACME", "totalOperacion": 1000.0})
	require.True(t, created.Dirty)
	require.Len(t, env.jobs(t), 1)

	res, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncStatusOK, res.Status)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Pulled)
	assert.Equal(t, 1, res.KeptLocal)

	doc, ok := env.server.get("op_1")
	require.True(t, ok)
	assert.Equal(t, "ACME", doc.Data["proveedor"])
	assert.Equal(t, 1000.0, doc.Data["totalOperacion"])

	local := env.local(t, "op_1")
	assert.False(t, local.Dirty)
	assert.Equal(t, created.UpdatedAtLocal, local.UpdatedAtLocal)
	assert.Empty(t, env.jobs(t))

	// токен актора передается серверу
	require.Len(t, env.remote.SaveOperacionCalls(), 1)
	assert.Equal(t, "access-token", env.remote.SaveOperacionCalls()[0].Token)

	last, err := env.store.GetLastSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncStatusOK, last.Status)
	assert.Equal(t, env.now.UnixMilli(), last.At)
}

func TestRunCycle_EmptyOutbox(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.engine.RunCycle(context.Background(), env.actor)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncStatusOK, res.Status)
	assert.Zero(t, res.Sent)
	assert.Empty(t, env.remote.SaveOperacionCalls())
	assert.Len(t, env.remote.ListOperacionesCalls(), 1)
}

func TestDrain_CollapsesJobsPerEntity(t *testing.T) {
	env := newTestEnv(t)

	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})
	env.upsert(t, "op_2", map[string]any{"proveedor": "Globex"})
	env.upsert(t, "op_1", map[string]any{"estado": "PLANIFICADA"})
	env.upsert(t, "op_1", map[string]any{"estado": "CARGADA"})
	require.Len(t, env.jobs(t), 4)

	res, err := env.engine.RunCycle(context.Background(), env.actor)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 2, res.Superseded)

	calls := env.remote.SaveOperacionCalls()
	require.Len(t, calls, 2)
	// op_2 идет первой: последняя задача op_1 стоит в очереди позже
	assert.Equal(t, "op_2", calls[0].Op.ID)
	assert.Equal(t, "op_1", calls[1].Op.ID)
	assert.Equal(t, "CARGADA", calls[1].Op.Data["estado"])
	assert.Equal(t, "ACME", calls[1].Op.Data["proveedor"])

	assert.Empty(t, env.jobs(t))
}

func TestDrain_RemoteFailureKeepsJob(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	save := env.remote.SaveOperacionFunc

	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})

	env.remote.SaveOperacionFunc = func(ctx context.Context, token string, op *models.Operacion) (*api.OperacionDocument, error) {
		return nil, errServerDown
	}
	res, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, storage.SyncStatusPartial, res.Status)
	assert.True(t, env.local(t, "op_1").Dirty)
	require.Len(t, env.jobs(t), 1)

	// повтор после восстановления сервера
	env.remote.SaveOperacionFunc = save
	res, err = env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, storage.SyncStatusOK, res.Status)
	assert.False(t, env.local(t, "op_1").Dirty)
	assert.Empty(t, env.jobs(t))
}

func TestDrain_FailureDoesNotStopOtherJobs(t *testing.T) {
	env := newTestEnv(t)
	save := env.remote.SaveOperacionFunc

	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})
	env.upsert(t, "op_2", map[string]any{"proveedor": "Globex"})

	env.remote.SaveOperacionFunc = func(ctx context.Context, token string, op *models.Operacion) (*api.OperacionDocument, error) {
		if op.ID == "op_1" {
			return nil, errServerDown
		}
		return save(ctx, token, op)
	}

	res, err := env.engine.RunCycle(context.Background(), env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)

	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, "op_1", jobs[0].EntityID)
	assert.True(t, env.local(t, "op_1").Dirty)
	assert.False(t, env.local(t, "op_2").Dirty)
}

func TestDrain_ResendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	save := env.remote.SaveOperacionFunc

	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME", "totalOperacion": 1000.0})

	// сервер сохранил документ, но ответ потерян
	env.remote.SaveOperacionFunc = func(ctx context.Context, token string, op *models.Operacion) (*api.OperacionDocument, error) {
		if _, err := save(ctx, token, op); err != nil {
			return nil, err
		}
		return nil, errServerDown
	}
	_, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	require.Len(t, env.jobs(t), 1)
	first, _ := env.server.get("op_1")

	env.remote.SaveOperacionFunc = save
	_, err = env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.Empty(t, env.jobs(t))

	second, _ := env.server.get("op_1")
	assert.Equal(t, first.Data, second.Data)
}

func TestDrain_EditDuringSendStaysDirty(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	save := env.remote.SaveOperacionFunc

	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})

	var once sync.Once
	env.remote.SaveOperacionFunc = func(ctx context.Context, token string, op *models.Operacion) (*api.OperacionDocument, error) {
		once.Do(func() {
			env.upsert(t, "op_1", map[string]any{"estado": "CARGADA"})
		})
		return save(ctx, token, op)
	}

	_, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)

	local := env.local(t, "op_1")
	assert.True(t, local.Dirty)
	assert.Equal(t, "CARGADA", local.Data["estado"])

	// задача, добавленная во время отправки, остается в очереди
	jobs := env.jobs(t)
	require.Len(t, jobs, 1)
	assert.Equal(t, local.UpdatedAtLocal, jobs[0].CreatedAt)
}

func TestDrain_DeleteSupersedesUpsert(t *testing.T) {
	env := newTestEnv(t)

	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})
	require.NoError(t, env.svc.Delete(context.Background(), "op_1"))

	res, err := env.engine.RunCycle(context.Background(), env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)

	assert.Empty(t, env.remote.SaveOperacionCalls())
	require.Len(t, env.remote.DeleteOperacionCalls(), 1)
	assert.Equal(t, "op_1", env.remote.DeleteOperacionCalls()[0].ID)

	local := env.local(t, "op_1")
	assert.True(t, local.Deleted)
	assert.False(t, local.Dirty)
	assert.Empty(t, env.jobs(t))
}

func TestDrain_DeleteRemovesServerDocument(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})
	_, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	_, ok := env.server.get("op_1")
	require.True(t, ok)

	env.now = env.now.Add(time.Second)
	require.NoError(t, env.svc.Delete(ctx, "op_1"))
	_, err = env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)

	_, ok = env.server.get("op_1")
	assert.False(t, ok)
	assert.Empty(t, env.jobs(t))
}

func TestDrain_UnknownEntityTypeDiscarded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.store.UpdateOperacion(ctx, "op_1", func(*models.Operacion) (*models.Operacion, *models.OutboxJob, error) {
		return &models.Operacion{ID: "op_1", Data: map[string]any{}},
			&models.OutboxJob{EntityType: "cliente", EntityID: "c_1", Op: models.OpUpsert, CreatedAt: 1}, nil
	})
	require.NoError(t, err)

	res, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Discarded)
	assert.Empty(t, env.remote.SaveOperacionCalls())
	assert.Empty(t, env.remote.DeleteOperacionCalls())
	assert.Empty(t, env.jobs(t))
}

func TestDrain_UpsertForMissingRecordSkipped(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.store.UpdateOperacion(ctx, "op_1", func(*models.Operacion) (*models.Operacion, *models.OutboxJob, error) {
		return &models.Operacion{ID: "op_1", Data: map[string]any{}},
			&models.OutboxJob{EntityType: models.EntityTypeOperacion, EntityID: "ghost", Op: models.OpUpsert, CreatedAt: 1}, nil
	})
	require.NoError(t, err)

	res, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, env.remote.SaveOperacionCalls())
	assert.Empty(t, env.jobs(t))
}

func TestPull_InsertsRemoteOnlyRecord(t *testing.T) {
	env := newTestEnv(t)
	env.remote.ListOperacionesFunc = func(ctx context.Context, token string) ([]api.OperacionDocument, error) {
		return []api.OperacionDocument{{
			ID:        "op_9",
			Data:      map[string]any{"proveedor": "Initech", "dirty": true},
			UpdatedAt: 5000,
		}}, nil
	}

	res, err := env.engine.RunCycle(context.Background(), env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	local := env.local(t, "op_9")
	assert.Equal(t, map[string]any{"proveedor": "Initech"}, local.Data)
	assert.Equal(t, int64(5000), local.UpdatedAtLocal)
	assert.False(t, local.Dirty)
	assert.False(t, local.Deleted)
	assert.Empty(t, env.jobs(t))
}

func TestPull_RemoteNewerOverwrites(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	op := env.upsert(t, "op_1", map[string]any{"proveedor": "ACME", "estado": "CREADA"})
	_, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)

	remoteAt := op.UpdatedAtLocal + 5000
	env.remote.ListOperacionesFunc = func(ctx context.Context, token string) ([]api.OperacionDocument, error) {
		return []api.OperacionDocument{{
			ID:        "op_1",
			Data:      map[string]any{"proveedor": "ACME Chile"},
			UpdatedAt: remoteAt,
		}}, nil
	}

	res, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)

	local := env.local(t, "op_1")
	// данные заменяются целиком
	assert.Equal(t, map[string]any{"proveedor": "ACME Chile"}, local.Data)
	assert.Equal(t, remoteAt, local.UpdatedAtLocal)
	assert.False(t, local.Dirty)
}

func TestPull_LocalNewerKept(t *testing.T) {
	env := newTestEnv(t)

	op := env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})
	env.remote.SaveOperacionFunc = func(ctx context.Context, token string, op *models.Operacion) (*api.OperacionDocument, error) {
		return nil, errServerDown
	}
	env.remote.ListOperacionesFunc = func(ctx context.Context, token string) ([]api.OperacionDocument, error) {
		return []api.OperacionDocument{{
			ID:        "op_1",
			Data:      map[string]any{"proveedor": "Viejo"},
			UpdatedAt: op.UpdatedAtLocal,
		}}, nil
	}

	res, err := env.engine.RunCycle(context.Background(), env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.KeptLocal)

	local := env.local(t, "op_1")
	assert.Equal(t, "ACME", local.Data["proveedor"])
	assert.True(t, local.Dirty)
}

func TestPull_DoesNotResurrectPendingDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})
	_, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, "op_1"))
	deleted := env.local(t, "op_1")

	env.remote.DeleteOperacionFunc = func(ctx context.Context, token, id string) error {
		return errServerDown
	}
	env.remote.ListOperacionesFunc = func(ctx context.Context, token string) ([]api.OperacionDocument, error) {
		return []api.OperacionDocument{{
			ID:        "op_1",
			Data:      map[string]any{"proveedor": "ACME"},
			UpdatedAt: deleted.UpdatedAtLocal + 60_000,
		}}, nil
	}

	res, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.KeptDelete)
	assert.Equal(t, 1, res.Failed)

	local := env.local(t, "op_1")
	assert.True(t, local.Deleted)
	assert.True(t, local.Dirty)
	require.Len(t, env.jobs(t), 1)
	assert.Equal(t, models.OpDelete, env.jobs(t)[0].Op)
}

func TestPull_FailureRecorded(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.remote.ListOperacionesFunc = func(ctx context.Context, token string) ([]api.OperacionDocument, error) {
		return nil, errServerDown
	}

	res, err := env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.ErrorIs(t, res.PullErr, errServerDown)
	assert.Equal(t, storage.SyncStatusFailed, res.Status)

	// с отправленными задачами цикл частично успешен
	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})
	res, err = env.engine.RunCycle(ctx, env.actor)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, storage.SyncStatusPartial, res.Status)

	last, err := env.store.GetLastSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncStatusPartial, last.Status)
}

func TestRunCycle_RejectsConcurrentCycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	save := env.remote.SaveOperacionFunc

	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})

	entered := make(chan struct{})
	release := make(chan struct{})
	env.remote.SaveOperacionFunc = func(ctx context.Context, token string, op *models.Operacion) (*api.OperacionDocument, error) {
		close(entered)
		<-release
		return save(ctx, token, op)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := env.engine.RunCycle(ctx, env.actor)
		errCh <- err
	}()

	<-entered
	assert.True(t, env.engine.Running())

	res, err := env.engine.RunCycle(ctx, env.actor)
	require.ErrorIs(t, err, ErrCycleInProgress)
	assert.Nil(t, res)

	close(release)
	require.NoError(t, <-errCh)
	assert.False(t, env.engine.Running())
	assert.Len(t, env.remote.SaveOperacionCalls(), 1)
	assert.Len(t, env.remote.ListOperacionesCalls(), 1)
}

func TestRunCycle_CanceledContext(t *testing.T) {
	env := newTestEnv(t)
	env.upsert(t, "op_1", map[string]any{"proveedor": "ACME"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := env.engine.RunCycle(ctx, env.actor)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, storage.SyncStatusFailed, res.Status)
	assert.Empty(t, env.remote.SaveOperacionCalls())
	assert.Len(t, env.jobs(t), 1)
	assert.False(t, env.engine.Running())
}

func TestRunCycle_Events(t *testing.T) {
	env := newTestEnv(t)

	var events []Event
	sub := env.engine.Subscribe(func(ev Event) { events = append(events, ev) })

	_, err := env.engine.RunCycle(context.Background(), env.actor)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, EventCycleStarted, events[0].Type)
	assert.Nil(t, events[0].Result)
	assert.Equal(t, EventCycleEnded, events[1].Type)
	require.NotNil(t, events[1].Result)
	assert.Equal(t, storage.SyncStatusOK, events[1].Result.Status)

	sub.Unsubscribe()
	sub.Unsubscribe()
	_, err = env.engine.RunCycle(context.Background(), env.actor)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestCollapse(t *testing.T) {
	jobs := []*models.OutboxJob{
		{EntityType: "operacion", EntityID: "a", Op: models.OpUpsert, Key: 1},
		{EntityType: "operacion", EntityID: "b", Op: models.OpUpsert, Key: 2},
		{EntityType: "operacion", EntityID: "a", Op: models.OpDelete, Key: 3},
		{EntityType: "cliente", EntityID: "a", Op: models.OpUpsert, Key: 4},
	}

	got := collapse(jobs)
	require.Len(t, got, 3)

	assert.Equal(t, uint64(2), got[0].job.Key)
	assert.Equal(t, []uint64{2}, got[0].keys)

	assert.Equal(t, uint64(3), got[1].job.Key)
	assert.Equal(t, models.OpDelete, got[1].job.Op)
	assert.Equal(t, []uint64{1, 3}, got[1].keys)

	assert.Equal(t, "cliente", got[2].job.EntityType)
	assert.Empty(t, collapse(nil))
}
