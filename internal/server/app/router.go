// Package app собирает HTTP сервер: маршруты, middleware и фоновые задачи.
package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/XavierGuerrero1989/sistema-impo/internal/server/handlers"
	"github.com/XavierGuerrero1989/sistema-impo/internal/server/jwt"
	"github.com/XavierGuerrero1989/sistema-impo/internal/server/middleware"
	"github.com/XavierGuerrero1989/sistema-impo/internal/server/storage"
)

const (
	healthPath  = "/api/v1/health"
	metricsPath = "/metrics"
)

// Store объединяет все хранилища сервера
type Store interface {
	storage.UserStorage
	storage.TokenStorage
	storage.OperacionStorage
	Ping(ctx context.Context) error
}

// NewRouter регистрирует все маршруты API.
// limiter ограничивает только эндпоинты аутентификации.
func NewRouter(logger *slog.Logger, store Store, tokens *jwt.Service, limiter *middleware.RateLimiter) http.Handler {
	authHandler := handlers.NewAuthHandler(logger, store, store, tokens)
	healthHandler := handlers.NewHealthHandler(logger, store)
	operacionesHandler := handlers.NewOperacionesHandler(logger, store)

	r := chi.NewRouter()
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingMiddleware(logger, healthPath, metricsPath))

	r.Get(healthPath, healthHandler.Health)
	r.Handle(metricsPath, promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
		})

		r.With(middleware.AuthMiddleware(logger, tokens)).Post("/logout", authHandler.Logout)
	})

	r.Route("/api/v1/operaciones", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(logger, tokens))
		r.Get("/", operacionesHandler.List)
		r.Get("/{id}", operacionesHandler.Get)
		r.Put("/{id}", operacionesHandler.Save)
		r.Delete("/{id}", operacionesHandler.Delete)
	})

	return r
}
