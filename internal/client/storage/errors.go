package storage

import "errors"

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrOperacionNotFound indicates that the operacion is not stored locally
	ErrOperacionNotFound = errors.New("operacion not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrStorageBusy файл базы заблокирован другим процессом дольше таймаута
	ErrStorageBusy = errors.New("storage is busy")
)
