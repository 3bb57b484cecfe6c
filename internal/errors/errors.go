// Package errors provides structured error types for the workflow agent.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout        = errors.New("operation timed out")
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotConnected   = errors.New("realtime channel not connected")
	ErrConnectionLost = errors.New("realtime connection lost")
	ErrStaleResponse  = errors.New("response arrived after project switch")
)

// APIError represents an error response from the backend.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: backend error (status %d): %s: %v", e.Operation, e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("%s: backend error (status %d): %s", e.Operation, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new backend API error.
func NewAPIError(operation string, statusCode int, message string) *APIError {
	return &APIError{Operation: operation, StatusCode: statusCode, Message: message}
}

// NetworkError represents a transport-level failure: the request was sent but
// no response was received.
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Operation, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError wraps a transport failure.
func NewNetworkError(operation string, err error) *NetworkError {
	return &NetworkError{Operation: operation, Err: err}
}

// IsNetwork reports whether err is a transport-level failure.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// ServerMessage extracts the server-supplied message from a backend error,
// or "" if err is not an APIError or carried no message.
func ServerMessage(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}

// IsRetryable returns true if the error is likely transient and worth
// retrying. The facade never retries; callers may.
func IsRetryable(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		switch ae.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return IsNetwork(err) || errors.Is(err, ErrTimeout)
}
