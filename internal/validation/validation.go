// Package validation проверяет пользовательский ввод, общий для клиента и сервера.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

var (
	// usernamePattern латинские буквы, цифры, '_', '.', '-'
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

	// operacionIDPattern без пробелов и '/', чтобы id безопасно ложился в URL
	operacionIDPattern = regexp.MustCompile(`^[^\s/?#]+$`)
)

const (
	MinUsernameLen    = 3
	MaxUsernameLen    = 32
	MinPasswordLen    = 8
	MaxPasswordLen    = 72 // предел bcrypt
	MaxOperacionIDLen = 64
)

// ErrInvalidInput matched by every validation failure
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

// ValidateUsername проверяет, что username соответствует требованиям
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return invalid("username cannot be empty")
	case len(username) < MinUsernameLen:
		return invalid("username must be at least %d characters long", MinUsernameLen)
	case len(username) > MaxUsernameLen:
		return invalid("username must not exceed %d characters", MaxUsernameLen)
	case !usernamePattern.MatchString(username):
		return invalid("username can only contain letters, numbers, '_', '.' and '-'")
	}
	return nil
}

// ValidatePassword checks length bounds only
func ValidatePassword(password string) error {
	switch {
	case password == "":
		return invalid("password cannot be empty")
	case len(password) < MinPasswordLen:
		return invalid("password must be at least %d characters long", MinPasswordLen)
	case len(password) > MaxPasswordLen:
		return invalid("password must not exceed %d bytes", MaxPasswordLen)
	}
	return nil
}

// ValidateOperacionID проверяет идентификатор операции (например "IMP-2024-001")
func ValidateOperacionID(id string) error {
	switch {
	case id == "":
		return invalid("operacion id cannot be empty")
	case utf8.RuneCountInString(id) > MaxOperacionIDLen:
		return invalid("operacion id must not exceed %d characters", MaxOperacionIDLen)
	case !operacionIDPattern.MatchString(id):
		return invalid("operacion id must not contain whitespace, '/', '?' or '#'")
	}
	return nil
}
