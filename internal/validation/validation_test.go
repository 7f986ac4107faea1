package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		errMsg   string
		wantErr  bool
	}{
		{name: "lowercase", username: "alice"},
		{name: "mixed with symbols", username: "Ana.Lopez-2"},
		{name: "max length", username: strings.Repeat("a", 32)},
		{name: "empty", username: "", wantErr: true, errMsg: "username cannot be empty"},
		{name: "too short", username: "ab", wantErr: true, errMsg: "must be at least 3 characters"},
		{name: "too long", username: strings.Repeat("a", 33), wantErr: true, errMsg: "must not exceed 32 characters"},
		{name: "space", username: "ana lopez", wantErr: true, errMsg: "can only contain"},
		{name: "cyrillic", username: "пользователь", wantErr: true, errMsg: "can only contain"},
		{name: "at sign", username: "ana@x", wantErr: true, errMsg: "can only contain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		errMsg   string
		wantErr  bool
	}{
		{name: "ok", password: "secret123"},
		{name: "exactly min", password: "12345678"},
		{name: "empty", password: "", wantErr: true, errMsg: "password cannot be empty"},
		{name: "short", password: "1234567", wantErr: true, errMsg: "at least 8 characters"},
		{name: "too long", password: strings.Repeat("x", 73), wantErr: true, errMsg: "must not exceed 72 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateOperacionID(t *testing.T) {
	valid := []string{"op_1", "IMP-2024-001", "ñandú", strings.Repeat("x", 64)}
	for _, id := range valid {
		assert.NoError(t, ValidateOperacionID(id), id)
	}

	invalidIDs := []string{"", "op 1", "a/b", "a?b", "a#b", "\t", strings.Repeat("x", 65)}
	for _, id := range invalidIDs {
		assert.ErrorIs(t, ValidateOperacionID(id), ErrInvalidInput, id)
	}
}
