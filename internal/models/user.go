package models

import "time"

// User представляет пользователя сервера
type User struct {
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	ID           string     `json:"id"`       // UUID пользователя
	Username     string     `json:"username"` // уникальный username
	PasswordHash string     `json:"-"`        // bcrypt хеш пароля
}

// RefreshToken представляет выданный refresh token
type RefreshToken struct {
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
}

// Expired reports whether the token is no longer valid at now
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
