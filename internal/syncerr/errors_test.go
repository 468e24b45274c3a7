package syncerr

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServerError_Retryable(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		retryable bool
	}{
		{"too many requests", 429, true},
		{"request timeout", 408, true},
		{"internal server error", 500, true},
		{"bad gateway", 502, true},
		{"service unavailable", 503, true},
		{"bad request", 400, false},
		{"unauthorized", 401, false},
		{"not found", 404, false},
		{"conflict", 409, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ServerError{StatusCode: tt.code, Message: "x"}
			assert.Equal(t, tt.retryable, err.Retryable())
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestIsRetryable_Sentinels(t *testing.T) {
	assert.True(t, IsRetryable(ErrNetworkUnavailable))
	assert.True(t, IsRetryable(ErrTimeout))
	assert.False(t, IsRetryable(ErrServiceUnavailable))
	assert.False(t, IsRetryable(ErrAuthenticationFailed))
	assert.False(t, IsRetryable(nil))
}

func TestIsRetryable_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("delta sync: %w", ErrTimeout)
	assert.True(t, IsRetryable(wrapped))

	decodeErr := fmt.Errorf("request: %w", &DecodingError{Err: fmt.Errorf("bad json")})
	assert.False(t, IsRetryable(decodeErr))

	mismatch := fmt.Errorf("sync: %w", &AlgorithmMismatchError{Message: "version 0.9 unsupported"})
	assert.False(t, IsRetryable(mismatch))
}

func TestIsRetryable_TransportErrors(t *testing.T) {
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&net.DNSError{Err: "no such host", Name: "sync.example.com"}))
	assert.True(t, IsRetryable(syscall.ECONNREFUSED))
	assert.False(t, IsRetryable(fmt.Errorf("some application error")))
}
