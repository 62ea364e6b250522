package connection

import (
	"errors"
	"fmt"
)

// Sentinel errors for the connection package.
var (
	// ErrMissingAPIKey indicates the API key was not provided.
	ErrMissingAPIKey = errors.New("connection: API key is required")

	// ErrMissingURL indicates the service URL was not provided.
	ErrMissingURL = errors.New("connection: service URL is required")

	// ErrInvalidConfig wraps every other Validate failure.
	ErrInvalidConfig = errors.New("connection: invalid config")

	// ErrAlreadyConnected is returned by Connect while a session is live
	// or being established.
	ErrAlreadyConnected = errors.New("connection: already connected")

	// ErrManagerClosed is returned by every operation after Close.
	ErrManagerClosed = errors.New("connection: manager closed")

	// ErrSendFailed indicates a synchronous write failed.
	ErrSendFailed = errors.New("connection: send failed")

	// ErrClosedNormally marks a service-initiated normal closure.
	ErrClosedNormally = errors.New("connection: closed normally")

	// ErrRetriesExhausted indicates the reconnection budget is spent.
	ErrRetriesExhausted = errors.New("connection: reconnect attempts exhausted")

	// ErrInvalidMessage indicates an inbound payload could not be routed.
	ErrInvalidMessage = errors.New("connection: invalid message")

	// ErrCaptureActive is returned by StartCapture while capturing.
	ErrCaptureActive = errors.New("connection: capture already active")
)

// APIError represents an error reported by the inference service, either
// as an error message on the session or as a rejected handshake.
type APIError struct {
	// StatusCode is the HTTP status of a rejected handshake, 0 otherwise.
	StatusCode int

	// Code is the service error code.
	Code string

	// Message is the human-readable error message.
	Message string

	// Details carries any additional context from the service.
	Details string

	// Retryable indicates if the session can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("connection: API error [%s]: %s", e.Code, e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("connection: API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("connection: API error: %s", e.Message)
}

// IsRetryable returns true if the error can be retried.
func (e *APIError) IsRetryable() bool {
	return e.Retryable
}

// NewAPIError creates an APIError for a rejected handshake. Rate limits
// and server errors are retryable; authentication failures are not.
func NewAPIError(statusCode int, code, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Retryable:  statusCode == 429 || statusCode >= 500,
	}
}

// ConnectionError represents a transport failure.
type ConnectionError struct {
	// Reason describes why the connection failed.
	Reason string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if reconnection should be attempted.
	Retryable bool
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("connection: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("connection: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if reconnection should be attempted.
func (e *ConnectionError) IsRetryable() bool {
	return e.Retryable
}

// NewConnectionError creates a new ConnectionError.
func NewConnectionError(reason string, cause error, retryable bool) *ConnectionError {
	return &ConnectionError{
		Reason:    reason,
		Cause:     cause,
		Retryable: retryable,
	}
}

// IsRetryable reports whether a session failure may be retried. Errors
// that carry no retry hint are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr.IsRetryable()
	}
	return !errors.Is(err, ErrManagerClosed)
}

// IsTerminal reports whether err means the manager gave up: retries were
// exhausted, the failure was not retryable, or the manager was closed.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRetriesExhausted) || errors.Is(err, ErrManagerClosed) {
		return true
	}
	return !IsRetryable(err)
}
