// Package syncerr defines the error taxonomy shared by the network engine
// and the sync service. Callers match variants with errors.Is / errors.As.
package syncerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Sentinel errors for variants that carry no payload.
var (
	// ErrNetworkUnavailable indicates the transport reported no connectivity.
	ErrNetworkUnavailable = errors.New("network unavailable")

	// ErrTimeout indicates a request exceeded its transport-level deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrServiceUnavailable is returned when the circuit breaker is open and
	// the request was rejected without a network attempt.
	ErrServiceUnavailable = errors.New("service unavailable: circuit open")

	// ErrAuthenticationFailed indicates the device is not (or no longer)
	// authenticated. Never retried.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrSyncInFlight is returned when a sync round is requested while
	// another one is still outstanding for the same device.
	ErrSyncInFlight = errors.New("sync already in progress")
)

// ServerError is a non-2xx response from the sync server.
type ServerError struct {
	Message    string
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the status code is worth retrying:
// 429, 408, and all 5xx. Other 4xx codes fail immediately.
func (e *ServerError) Retryable() bool {
	switch {
	case e.StatusCode == 429 || e.StatusCode == 408:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// DecodingError indicates a response body could not be decoded. Never
// retried: a malformed payload will not improve on a second attempt.
type DecodingError struct {
	Err error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("failed to decode response: %v", e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// AlgorithmMismatchError aborts a sync round before any data is applied.
// Applying records under a mismatched algorithm version would silently
// corrupt locally computed scores.
type AlgorithmMismatchError struct {
	Message string
}

func (e *AlgorithmMismatchError) Error() string {
	return fmt.Sprintf("algorithm mismatch: %s", e.Message)
}

// IsRetryable classifies an error per the retry policy contract: transport
// timeouts, connectivity loss, DNS failures, connection refusal, and
// retryable server statuses. Everything else fails immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNetworkUnavailable) || errors.Is(err, ErrTimeout) {
		return true
	}
	if errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrAuthenticationFailed) {
		return false
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Retryable()
	}
	var decodingErr *DecodingError
	if errors.As(err, &decodingErr) {
		return false
	}
	var mismatchErr *AlgorithmMismatchError
	if errors.As(err, &mismatchErr) {
		return false
	}

	// Raw transport errors that did not go through the API client's mapping.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	return false
}
