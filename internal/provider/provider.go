// Package provider defines the common contract for remote generation
// providers. Each external API (HeyGen, Replicate, ...) is normalized behind
// the Adapter interface so the orchestrator never branches on provider
// identity beyond selecting which adapter to call.
package provider

import (
	"context"
	"errors"
	"fmt"
)

// State is the provider-reported state of a remote job.
type State string

// Provider-side job states.
const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Handle identifies a job on the provider side after a successful submit.
type Handle struct {
	// ProviderJobID is the provider-assigned identifier.
	ProviderJobID string
}

// Result holds the artifacts a provider produced for a succeeded job.
type Result struct {
	URLs        []string
	DurationSec float64
	Width       int
	Height      int
	// Text is the generated content for synchronous text providers.
	Text string
}

// Failure holds the provider's error detail for a failed job.
type Failure struct {
	Code    string
	Message string
}

// Status is the result of polling a remote job.
type Status struct {
	State State
	// Result is set when State is succeeded and the provider returns the
	// artifacts inline with the status.
	Result *Result
	// Failure is set when State is failed.
	Failure *Failure
}

// Adapter normalizes one remote generation API behind a uniform
// submit/poll/fetch contract. Poll must be safe to call repeatedly; Submit
// must expose no partial remote state on failure.
type Adapter interface {
	// Validate checks the parameters against the provider's schema.
	// Returns an Error of kind validation on violation.
	Validate(params map[string]any) error

	// Submit starts remote work and returns the provider handle.
	Submit(ctx context.Context, params map[string]any) (Handle, error)

	// Poll reports the current remote state. Read-only on the provider side.
	Poll(ctx context.Context, h Handle) (Status, error)

	// FetchResult retrieves the final artifact locations.
	// Only valid after Poll reported succeeded.
	FetchResult(ctx context.Context, h Handle) (*Result, error)

	// Cancel requests provider-side cancellation. Best-effort: callers
	// treat failure as non-fatal.
	Cancel(ctx context.Context, h Handle) error
}

// Synchronous is an optional capability for providers that complete in a
// single call with no remote polling phase, such as text idea generation.
type Synchronous interface {
	Generate(ctx context.Context, params map[string]any) (*Result, error)
}

// ErrorKind classifies adapter errors for retry and surfacing decisions.
type ErrorKind string

const (
	// ErrorKindValidation means the caller's parameters are malformed.
	// Never retried.
	ErrorKindValidation ErrorKind = "validation"
	// ErrorKindAuth means the provider rejected the credentials.
	// Fatal to the job, never retried.
	ErrorKindAuth ErrorKind = "auth"
	// ErrorKindTransport means a network failure, timeout or provider 5xx.
	// Retried with bounded backoff.
	ErrorKindTransport ErrorKind = "transport"
	// ErrorKindNotFound means the provider does not know the handle.
	ErrorKindNotFound ErrorKind = "not_found"
)

// Error is a classified adapter error carrying the provider's code and message.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider: %s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("provider: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// NewError creates a classified provider error wrapping an underlying cause.
func NewError(kind ErrorKind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, err: err}
}

// Validationf creates a validation-kind error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

// Transportf creates a transport-kind error.
func Transportf(format string, args ...any) *Error {
	return &Error{Kind: ErrorKindTransport, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind. Errors that are not classified provider
// errors are treated as transport failures so that one misbehaving adapter
// follows the ordinary retry and failure path instead of crashing callers.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorKindTransport
}

// AsFailure converts an adapter error into structured failure detail.
func AsFailure(err error) *Failure {
	if err == nil {
		return &Failure{}
	}
	var pe *Error
	if errors.As(err, &pe) {
		return &Failure{Code: pe.Code, Message: pe.Message}
	}
	return &Failure{Message: err.Error()}
}

// IsTransport reports whether the error should follow the retry path.
func IsTransport(err error) bool {
	return KindOf(err) == ErrorKindTransport
}
