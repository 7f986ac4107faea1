// Package netstate отслеживает доступность сервера.
package netstate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/backoff"
	"github.com/XavierGuerrero1989/sistema-impo/internal/metrics"
	"github.com/XavierGuerrero1989/sistema-impo/pkg/api"
)

// Prober checks whether the server answers
type Prober interface {
	Health(ctx context.Context) (*api.HealthResponse, error)
}

const (
	probeTimeout    = 5 * time.Second
	minOfflineDelay = time.Second
)

// Subscription is returned by Subscribe
type Subscription struct {
	m  *Monitor
	id uint64
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.m.mu.Lock()
	delete(s.m.subs, s.id)
	s.m.mu.Unlock()
}

// Monitor periodically probes the server and reports online/offline
// transitions. The initial state is online until a probe fails.
type Monitor struct {
	prober   Prober
	logger   *slog.Logger
	backoff  *backoff.Backoff
	subs     map[uint64]func(online bool)
	interval time.Duration
	nextID   uint64
	online   atomic.Bool
	mu       sync.Mutex
}

// NewMonitor creates a monitor probing every interval while online and
// with growing delays (up to interval) while offline.
func NewMonitor(prober Prober, interval time.Duration, logger *slog.Logger) *Monitor {
	m := &Monitor{
		prober:   prober,
		logger:   logger,
		backoff:  backoff.New(min(minOfflineDelay, interval), interval, 2),
		subs:     make(map[uint64]func(bool)),
		interval: interval,
	}
	m.online.Store(true)
	metrics.Online.Set(1)
	return m
}

// Online reports the last known state
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Subscribe registers fn for transitions
func (m *Monitor) Subscribe(fn func(online bool)) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.subs[m.nextID] = fn
	return &Subscription{m: m, id: m.nextID}
}

// Probe performs one health check and updates the state
func (m *Monitor) Probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	_, err := m.prober.Health(probeCtx)
	if err != nil {
		m.logger.Debug("Health probe failed", slog.Any("error", err))
	}
	m.set(err == nil)

	return err == nil
}

// Run probes until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	for {
		var wait time.Duration
		if m.Probe(ctx) {
			m.backoff.Reset()
			wait = m.interval
		} else {
			wait = m.backoff.Next()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (m *Monitor) set(online bool) {
	if m.online.Swap(online) == online {
		return
	}

	if online {
		metrics.Online.Set(1)
		m.logger.Info("Server reachable again")
	} else {
		metrics.Online.Set(0)
		m.logger.Warn("Server unreachable, working offline")
	}

	m.mu.Lock()
	subs := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}
