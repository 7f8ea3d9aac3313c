package lode

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"fs permission", errors.New("open /x: permission denied"), ErrPermissionDenied},
		{"s3 access denied", errors.New("api error AccessDenied: Access Denied"), ErrAccessDenied},
		{"not found", errors.New("NoSuchKey: key does not exist"), ErrNotFound},
		{"disk full", errors.New("write: no space left on device"), ErrDiskFull},
		{"deadline", context.DeadlineExceeded, ErrTimeout},
		{"throttled", errors.New("SlowDown: reduce request rate"), ErrThrottled},
		{"auth", errors.New("NoCredentialProviders: no valid providers"), ErrAuth},
		{"network", errors.New("dial tcp 10.0.0.1:443: connection refused"), ErrNetwork},
		{"other", errors.New("something odd"), ErrUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); got != tt.want {
				t.Errorf("classifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStorageError_Chain(t *testing.T) {
	cause := errors.New("open /data: permission denied")
	err := WrapWriteError(cause, "faultline/events")

	if !errors.Is(err, ErrPermissionDenied) {
		t.Error("errors.Is(err, ErrPermissionDenied) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("underlying cause lost")
	}
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatal("errors.As(*StorageError) = false")
	}
	if se.Op != "write" || se.Path != "faultline/events" {
		t.Errorf("Op, Path = %q, %q", se.Op, se.Path)
	}

	wrapped := fmt.Errorf("flush: %w", err)
	if !IsStorageError(wrapped) {
		t.Error("IsStorageError() = false through fmt wrapping")
	}
	if again := WrapReadError(err, "other"); again != err {
		t.Error("re-wrapping a StorageError must return it unchanged")
	}
}

func TestWrap_Nil(t *testing.T) {
	if WrapWriteError(nil, "x") != nil || WrapReadError(nil, "x") != nil || WrapInitError(nil, "x") != nil {
		t.Error("wrapping nil must return nil")
	}
}
