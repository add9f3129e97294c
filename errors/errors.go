package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure. Each kind maps to one error category
// reported to callers in the response envelope.
type Kind string

const (
	KindMissingParameter     Kind = "MissingParameter"
	KindMissingPrompt        Kind = "MissingPrompt"
	KindMissingCredential    Kind = "MissingCredential"
	KindBackendUnavailable   Kind = "BackendUnavailable"
	KindGenerationFailed     Kind = "GenerationFailed"
	KindBackendHTTPError     Kind = "BackendHTTPError"
	KindNoPredictionReturned Kind = "NoPredictionReturned"
	KindTransportError       Kind = "TransportError"
	KindSynthesisFailure     Kind = "SynthesisFailure"
	KindInternal             Kind = "Internal"
)

// Sentinel errors for common error conditions
var (
	// ErrMissingParameter indicates that a required request parameter is absent
	ErrMissingParameter = &Error{Kind: KindMissingParameter}

	// ErrMissingPrompt indicates that the prompt text is empty
	ErrMissingPrompt = &Error{Kind: KindMissingPrompt}

	// ErrMissingCredential indicates that no backend credential is configured
	ErrMissingCredential = &Error{Kind: KindMissingCredential}

	// ErrBackendUnavailable indicates that the model catalog could not be fetched
	ErrBackendUnavailable = &Error{Kind: KindBackendUnavailable}

	// ErrBackendHTTP indicates that the backend answered with a non-2xx status
	ErrBackendHTTP = &Error{Kind: KindBackendHTTPError}

	// ErrNoPrediction indicates a 2xx backend answer without usable output
	ErrNoPrediction = &Error{Kind: KindNoPredictionReturned}

	// ErrTransport indicates that the backend could not be reached
	ErrTransport = &Error{Kind: KindTransportError}

	// ErrInternal indicates an internal server error
	ErrInternal = &Error{Kind: KindInternal}
)

// Error is a classified gateway failure. Details carries a diagnostic that is
// safe to return to a caller; Err keeps the underlying cause for logs.
type Error struct {
	Kind       Kind
	Message    string
	Details    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match on Kind so that errors.Is(err, ErrTransport) works for
// any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error of the given kind around cause. The cause text
// becomes the caller-visible details.
func Wrap(kind Kind, message string, cause error) *Error {
	e := &Error{Kind: kind, Message: message, Err: cause}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// HTTPStatus creates a BackendHTTPError carrying the backend status and raw body.
func HTTPStatus(status int, body string) *Error {
	return &Error{
		Kind:       KindBackendHTTPError,
		Message:    "backend returned an error status",
		Details:    body,
		StatusCode: status,
	}
}

// KindOf returns the Kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As is errors.As re-exported so callers importing this package under its
// own name do not also need the standard library package.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is errors.Is re-exported.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
