package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without cause",
			err:  NewNotFoundError("dataset"),
			want: "[NOT_FOUND] dataset not found",
		},
		{
			name: "with cause",
			err:  NewStorageError("write upload", fs.ErrPermission),
			want: "[STORAGE] write upload: permission denied",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := fmt.Errorf("store: %w", NewStorageError("open dataset", fs.ErrNotExist))

	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}

func TestAppError_Kind(t *testing.T) {
	tests := []struct {
		err  *AppError
		want string
	}{
		{err: NewParsingError("bad workbook", nil), want: "parsing"},
		{err: NewStorageError("disk", nil), want: "storage"},
		{err: NewNotFoundError("x"), want: "not_found"},
		{err: NewConfigError("port", nil), want: "internal"},
		{err: NewAppError(ErrTypeValidation, "bad", nil), want: "internal"},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Kind())
		})
	}
}

func TestAppError_WithContext(t *testing.T) {
	err := NewParsingError("convert upload", nil).
		WithContext("file", "scan_50.xlsx").
		WithContext("scan_rate", 50.0)

	assert.Equal(t, "scan_50.xlsx", err.Context["file"])
	assert.Equal(t, 50.0, err.Context["scan_rate"])

	bare := &AppError{Type: ErrTypeStorage}
	bare.WithContext("path", "/tmp")
	assert.Equal(t, "/tmp", bare.Context["path"])
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("layer: %w", NewConfigError("missing", nil))

	assert.True(t, IsType(wrapped, ErrTypeConfig))
	assert.False(t, IsType(wrapped, ErrTypeStorage))
	assert.False(t, IsType(errors.New("plain"), ErrTypeConfig))
	assert.False(t, IsType(nil, ErrTypeConfig))
}
