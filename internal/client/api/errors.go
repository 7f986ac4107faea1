package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRemote wraps every failure talking to the server
	ErrRemote = errors.New("remote service error")

	// ErrUnauthorized сервер отклонил токен (401)
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError non-2xx answer from the server
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Is matches ErrRemote always and ErrUnauthorized on 401
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRemote:
		return true
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}
