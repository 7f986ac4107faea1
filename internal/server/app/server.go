package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/XavierGuerrero1989/sistema-impo/internal/server/config"
	"github.com/XavierGuerrero1989/sistema-impo/internal/server/jwt"
	"github.com/XavierGuerrero1989/sistema-impo/internal/server/middleware"
)

// Server HTTP сервер с фоновой очисткой токенов
type Server struct {
	logger  *slog.Logger
	store   Store
	limiter *middleware.RateLimiter
	http    *http.Server
	cfg     *config.Config
}

// New создает сервер. Хранилище закрывает вызывающий.
func New(cfg *config.Config, store Store, logger *slog.Logger) *Server {
	tokens := jwt.NewService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow, logger)

	return &Server{
		logger:  logger,
		store:   store,
		limiter: limiter,
		cfg:     cfg,
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           NewRouter(logger, store, tokens, limiter),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run слушает cfg.HTTPAddr до отмены ctx, затем корректно останавливается
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.HTTPAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает запросы на ln до отмены ctx
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.limiter.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cleanupDone := make(chan struct{})
	go s.runTokenCleanup(ctx, cleanupDone)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server started", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		cancel()
		<-cleanupDone
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	<-cleanupDone
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("Shutdown complete")
	return nil
}

// runTokenCleanup periodically removes expired refresh tokens
func (s *Server) runTokenCleanup(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupTokens(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) cleanupTokens(ctx context.Context) {
	n, err := s.store.DeleteExpiredTokens(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to delete expired tokens", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("Expired refresh tokens removed", "count", n)
	}
}
