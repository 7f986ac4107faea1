package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/XavierGuerrero1989/sistema-impo/internal/client/storage"
	"github.com/XavierGuerrero1989/sistema-impo/internal/validation"
	pkgapi "github.com/XavierGuerrero1989/sistema-impo/pkg/api"
)

// ErrNotLoggedIn нет сохраненной сессии
var ErrNotLoggedIn = errors.New("not logged in")

// API is the part of the server API used for authentication
type API interface {
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.RegisterResponse, error)
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
}

// Service предоставляет функции авторизации и хранит текущую сессию
type Service struct {
	api    API
	store  storage.AuthStorage
	logger *slog.Logger
	now    func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(api API, store storage.AuthStorage, logger *slog.Logger) *Service {
	return &Service{
		api:    api,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// RegisterResult содержит результат регистрации
type RegisterResult struct {
	UserID   string
	Username string
}

// Register регистрирует нового пользователя. Сессия не создается.
func (s *Service) Register(ctx context.Context, username, password string) (*RegisterResult, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	resp, err := s.api.Register(ctx, pkgapi.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	return &RegisterResult{UserID: resp.UserID, Username: username}, nil
}

// Login выполняет аутентификацию и сохраняет сессию в локальном хранилище
func (s *Service) Login(ctx context.Context, username, password string) (*storage.AuthData, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	tokens, err := s.api.Login(ctx, pkgapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	auth := s.authFromTokens(username, tokens)
	if err := s.store.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	s.logger.Info("Logged in", slog.String("username", username), slog.String("user_id", auth.UserID))

	return auth, nil
}

// Refresh обновляет access token по refresh token и сохраняет новую пару
func (s *Service) Refresh(ctx context.Context, current *storage.AuthData) (*storage.AuthData, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, ErrNotLoggedIn
	}

	tokens, err := s.api.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	auth := s.authFromTokens(current.Username, tokens)
	if auth.UserID == "" {
		auth.UserID = current.UserID
	}
	if err := s.store.SaveAuth(ctx, auth); err != nil {
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	s.logger.Debug("Access token refreshed", slog.String("user_id", auth.UserID))

	return auth, nil
}

// Current returns the stored session or ErrNotLoggedIn
func (s *Service) Current(ctx context.Context) (*storage.AuthData, error) {
	auth, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to get auth data: %w", err)
	}
	return auth, nil
}

// Logout удаляет локальную сессию. Ошибка отзыва токена на сервере только логируется.
func (s *Service) Logout(ctx context.Context) error {
	auth, err := s.Current(ctx)
	if err != nil {
		return err
	}

	if err := s.api.Logout(ctx, auth.AccessToken, auth.RefreshToken); err != nil {
		s.logger.Warn("Server logout failed", slog.Any("error", err))
	}

	if err := s.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete auth data: %w", err)
	}

	s.logger.Info("Logged out", slog.String("username", auth.Username))

	return nil
}

func (s *Service) authFromTokens(username string, tokens *pkgapi.TokenResponse) *storage.AuthData {
	fallback := s.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)

	auth := &storage.AuthData{
		Username:     username,
		UserID:       tokens.UserID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    fallback.Unix(),
	}

	// Срок и subject берем из самого токена, если он читается
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokens.AccessToken, &claims); err == nil {
		if claims.ExpiresAt != nil {
			auth.ExpiresAt = claims.ExpiresAt.Unix()
		}
		if auth.UserID == "" {
			auth.UserID = claims.Subject
		}
	}

	return auth
}
