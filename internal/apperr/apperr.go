// Package apperr defines the engine's error taxonomy. Every package that
// talks to the outside world (providers, store, API handlers) classifies
// its errors into one of these kinds so the API layer can map them to HTTP
// status codes without caring which component raised them.
package apperr

import (
	"github.com/pkg/errors"
)

// Kind classifies an error for the purpose of the caller's response.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindInvalidInput    Kind = "invalid_input"
	KindTransport       Kind = "transport"
	KindStore           Kind = "store"
	KindInsufficientData Kind = "insufficient_data"
	KindCancelled       Kind = "cancelled"
)

// Error wraps an underlying cause with a Kind and a caller-facing message.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap always returns a non-nil *Error carrying kind, even when err is nil —
// callers use Transport/Store to synthesize a classified error from a bare
// message (e.g. an unexpected status code with no underlying Go error), and a
// nil return there would make the failure invisible to the caller.
func Wrap(kind Kind, err error, message string) error {
	return &Error{Kind: kind, Message: message, cause: err}
}

// NotFound, InvalidInput, Transport, Store, InsufficientData and Cancelled
// are convenience constructors for the engine's error-kind taxonomy.
func NotFound(format string, args ...interface{}) error {
	return New(KindNotFound, errors.Errorf(format, args...).Error())
}

func InvalidInput(format string, args ...interface{}) error {
	return New(KindInvalidInput, errors.Errorf(format, args...).Error())
}

func Transport(err error, format string, args ...interface{}) error {
	return Wrap(KindTransport, err, errors.Errorf(format, args...).Error())
}

func Store(err error, format string, args ...interface{}) error {
	return Wrap(KindStore, err, errors.Errorf(format, args...).Error())
}

func InsufficientData(format string, args ...interface{}) error {
	return New(KindInsufficientData, errors.Errorf(format, args...).Error())
}

func Cancelled(format string, args ...interface{}) error {
	return New(KindCancelled, errors.Errorf(format, args...).Error())
}

// KindOf extracts the Kind from err, defaulting to KindTransport for errors
// that were never classified (e.g. a raw network error surfaced unwrapped).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}
