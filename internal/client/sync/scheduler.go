package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/netstate"
	"github.com/XavierGuerrero1989/sistema-impo/internal/client/session"
)

// DefaultInterval период фоновой синхронизации
const DefaultInterval = 15 * time.Second

// ActorSource provides the current actor and its changes
type ActorSource interface {
	Current() *session.Actor
	Subscribe(fn func(*session.Actor)) *session.Subscription
}

// Connectivity provides the online state and its transitions
type Connectivity interface {
	Online() bool
	Subscribe(fn func(online bool)) *netstate.Subscription
}

// Scheduler запускает циклы синхронизации, пока есть актор:
// сразу при появлении актора, по таймеру и при возврате в online.
type Scheduler struct {
	engine   *Engine
	sessions ActorSource
	conn     Connectivity
	logger   *slog.Logger
	interval time.Duration
}

// NewScheduler creates a scheduler. conn may be nil, then the client is
// treated as always online.
func NewScheduler(engine *Engine, sessions ActorSource, conn Connectivity, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		engine:   engine,
		sessions: sessions,
		conn:     conn,
		logger:   logger,
		interval: interval,
	}
}

// Run blocks until ctx is done. A background session is started whenever an
// actor appears and torn down when it goes away or changes user.
func (s *Scheduler) Run(ctx context.Context) {
	actors := make(chan *session.Actor, 1)
	sub := s.sessions.Subscribe(func(a *session.Actor) {
		// последний актор важнее предыдущих
		select {
		case <-actors:
		default:
		}
		actors <- a
	})
	defer sub.Unsubscribe()

	var (
		userID string
		cancel context.CancelFunc
		done   chan struct{}
	)
	stop := func() {
		if cancel == nil {
			return
		}
		cancel()
		<-done
		cancel, done, userID = nil, nil, ""
	}
	start := func(a *session.Actor) {
		var sctx context.Context
		sctx, cancel = context.WithCancel(ctx)
		done = make(chan struct{})
		userID = a.UserID
		go s.runSession(ctx, sctx, a.UserID, done)
	}

	if a := s.sessions.Current(); a != nil {
		start(a)
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case a := <-actors:
			switch {
			case a == nil:
				if cancel != nil {
					s.logger.Info("Actor gone, stopping background sync", "user_id", userID)
				}
				stop()
			case a.UserID != userID:
				stop()
				start(a)
			}
		}
	}
}

// runSession cycles use the scheduler ctx so that an in-flight cycle is not
// interrupted by session teardown.
func (s *Scheduler) runSession(cycleCtx, sctx context.Context, userID string, done chan struct{}) {
	defer close(done)

	log := s.logger.With("user_id", userID)
	log.Info("Background sync started", "interval", s.interval.String())

	trigger := make(chan struct{}, 1)
	if s.conn != nil {
		connSub := s.conn.Subscribe(func(online bool) {
			if !online {
				return
			}
			select {
			case trigger <- struct{}{}:
			default:
			}
		})
		defer connSub.Unsubscribe()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(cycleCtx, log, userID, false)
	for {
		select {
		case <-sctx.Done():
			log.Info("Background sync stopped")
			return
		case <-ticker.C:
			s.runOnce(cycleCtx, log, userID, false)
		case <-trigger:
			log.Info("Connection restored, syncing")
			s.runOnce(cycleCtx, log, userID, true)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, log *slog.Logger, userID string, force bool) {
	if !force && s.conn != nil && !s.conn.Online() {
		log.Debug("Offline, skipping sync")
		return
	}

	actor := s.sessions.Current()
	if actor == nil || actor.UserID != userID {
		return
	}

	if _, err := s.engine.RunCycle(ctx, actor); err != nil {
		switch {
		case errors.Is(err, ErrCycleInProgress):
			log.Debug("Sync cycle already running, skipping")
		case errors.Is(err, context.Canceled):
		default:
			log.Error("Sync cycle failed", "error", err)
		}
	}
}
