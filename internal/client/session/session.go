// Package session хранит текущего актора (аутентифицированного пользователя)
// и уведомляет подписчиков о его появлении и исчезновении.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
)

//go:generate moq -out refresher_mock.go . Refresher

// Refresher renews an access token
type Refresher interface {
	Refresh(ctx context.Context, current *storage.AuthData) (*storage.AuthData, error)
}

// Actor аутентифицированный пользователь, от имени которого идет синхронизация
type Actor struct {
	ExpiresAt    time.Time
	UserID       string
	Username     string
	AccessToken  string
	RefreshToken string
}

// Subscription is returned by Subscribe
type Subscription struct {
	m  *Manager
	id uint64
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.m.mu.Lock()
	delete(s.m.subs, s.id)
	s.m.mu.Unlock()
}

const (
	defaultRefreshBefore = 30 * time.Second
	refreshRetry         = 30 * time.Second
)

// Manager observable holder of the current actor
type Manager struct {
	store     storage.AuthStorage
	refresher Refresher
	logger    *slog.Logger
	now       func() time.Time
	actor     *Actor
	subs      map[uint64]func(*Actor)
	changed   chan struct{}

	refreshBefore time.Duration
	nextID        uint64
	mu            sync.RWMutex
}

// NewManager creates a session manager. refresher may be nil.
func NewManager(store storage.AuthStorage, refresher Refresher, logger *slog.Logger) *Manager {
	return &Manager{
		store:         store,
		refresher:     refresher,
		logger:        logger,
		now:           time.Now,
		subs:          make(map[uint64]func(*Actor)),
		changed:       make(chan struct{}, 1),
		refreshBefore: defaultRefreshBefore,
	}
}

// Current returns a copy of the current actor or nil
func (m *Manager) Current() *Actor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.actor == nil {
		return nil
	}
	a := *m.actor
	return &a
}

// Set replaces the current actor and notifies subscribers
func (m *Manager) Set(a *Actor) {
	var next *Actor
	if a != nil {
		c := *a
		next = &c
	}
	m.swap(next)
}

// Clear removes the current actor
func (m *Manager) Clear() {
	m.swap(nil)
}

// Subscribe registers fn for actor changes. fn gets nil when the actor goes away.
func (m *Manager) Subscribe(fn func(*Actor)) *Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	m.subs[m.nextID] = fn
	return &Subscription{m: m, id: m.nextID}
}

// Restore loads the stored session. An expired session is refreshed when
// possible, otherwise no actor is set.
func (m *Manager) Restore(ctx context.Context) error {
	auth, err := m.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			m.Clear()
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	if m.now().Unix() < auth.ExpiresAt {
		m.Set(ActorFromAuth(auth))
		return nil
	}

	if m.refresher == nil || auth.RefreshToken == "" {
		m.logger.Info("Stored session expired", slog.String("username", auth.Username))
		m.Clear()
		return nil
	}

	renewed, err := m.refresher.Refresh(ctx, auth)
	if err != nil {
		m.logger.Warn("Failed to refresh expired session", slog.Any("error", err))
		m.Clear()
		return nil
	}

	m.Set(ActorFromAuth(renewed))
	return nil
}

// Watch renews the access token shortly before it expires and clears the
// actor once it is expired and cannot be renewed. Blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context) {
	for {
		a := m.Current()

		var t *time.Timer
		var timer <-chan time.Time
		if a != nil {
			wait := a.ExpiresAt.Add(-m.refreshBefore).Sub(m.now())
			t = time.NewTimer(max(wait, 0))
			timer = t.C
		}

		select {
		case <-ctx.Done():
			stopTimer(t)
			return
		case <-m.changed:
			stopTimer(t)
		case <-timer:
			m.renew(ctx, a)
		}
	}
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (m *Manager) renew(ctx context.Context, a *Actor) {
	if m.refresher != nil && a.RefreshToken != "" {
		renewed, err := m.refresher.Refresh(ctx, a.toAuth())
		if err == nil {
			m.Set(ActorFromAuth(renewed))
			return
		}
		m.logger.Warn("Token refresh failed", slog.String("user_id", a.UserID), slog.Any("error", err))
	}

	if !m.now().Before(a.ExpiresAt) {
		m.logger.Info("Session expired", slog.String("user_id", a.UserID))
		m.Clear()
		return
	}

	// повторим позже, но не позже истечения
	select {
	case <-ctx.Done():
	case <-m.changed:
	case <-time.After(min(refreshRetry, a.ExpiresAt.Sub(m.now()))):
	}
}

func (m *Manager) swap(next *Actor) {
	m.mu.Lock()
	prev := m.actor
	m.actor = next
	subs := make([]func(*Actor), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	if prev == nil && next == nil {
		return
	}

	m.signal()
	for _, fn := range subs {
		var a *Actor
		if next != nil {
			c := *next
			a = &c
		}
		fn(a)
	}
}

func (m *Manager) signal() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

// ActorFromAuth converts stored auth data to an actor
func ActorFromAuth(auth *storage.AuthData) *Actor {
	return &Actor{
		UserID:       auth.UserID,
		Username:     auth.Username,
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		ExpiresAt:    time.Unix(auth.ExpiresAt, 0),
	}
}

func (a *Actor) toAuth() *storage.AuthData {
	return &storage.AuthData{
		Username:     a.Username,
		UserID:       a.UserID,
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		ExpiresAt:    a.ExpiresAt.Unix(),
	}
}
