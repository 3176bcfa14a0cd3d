package tg

import (
	"errors"
	"fmt"
)

// Sentinel errors for the seven error kinds the dispatch engine raises.
// Use errors.Is() to match; call sites wrap with fmt.Errorf("...: %w", ErrX).
var (
	// ErrConfig covers file load, parse, and missing-environment-variable
	// failures. Fatal at startup.
	ErrConfig = errors.New("tgin: config error")

	// ErrBind covers HTTP/TLS bind failures. Fatal at startup.
	ErrBind = errors.New("tgin: bind error")

	// ErrTransport covers update-source, webhook-route, and registration
	// network failures. Logged; retried on sources, ignored on delivery
	// and registration.
	ErrTransport = errors.New("tgin: transport error")

	// ErrParse covers update-source JSON decode failures. Logged; retried
	// after the configured error-sleep.
	ErrParse = errors.New("tgin: parse error")

	// ErrUnsupported is raised by add_child on a leaf route. Dropped
	// silently in the dispatch loop.
	ErrUnsupported = errors.New("tgin: unsupported operation")

	// ErrDownstreamGone is raised when an update-channel send fails
	// because the consumer has exited. The update source terminates.
	ErrDownstreamGone = errors.New("tgin: downstream consumer gone")

	// ErrControlEnqueueTimeout is raised when the admin API cannot
	// enqueue a control message. Surfaced to the caller as 500.
	ErrControlEnqueueTimeout = errors.New("tgin: control enqueue timeout")
)

// APIError carries HTTP-facing detail (status code + message) for errors
// returned by the admin API and the long-poll/webhook HTTP surfaces.
type APIError struct {
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tgin: %s (code=%d)", e.Message, e.Code)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError builds an APIError wrapping one of the sentinels above.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{Code: code, Message: message, Err: cause}
}
