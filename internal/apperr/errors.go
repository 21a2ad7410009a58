package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so handlers can map it to a response.
type Kind string

const (
	KindValidation  Kind = "VALIDATION_ERROR"
	KindConflict    Kind = "CONFLICT"
	KindNotFound    Kind = "NOT_FOUND"
	KindExternalAck Kind = "EXTERNAL_ACKNOWLEDGMENT_ERROR"
)

// Sentinels for errors.Is checks against a Kind.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrExternalAck = &Error{Kind: KindExternalAck}
)

// Error is a classified domain error. Err carries the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, apperr.ErrConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// ExternalAck wraps a malformed or out-of-order authority callback.
func ExternalAck(cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindExternalAck, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
