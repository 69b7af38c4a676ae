package nav

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable error classification crossing the store boundary.
// Callers branch on the kind, never on message text.
type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindValidation     ErrorKind = "validation"
	KindTransientStore ErrorKind = "transient_store"
	KindAggregation    ErrorKind = "aggregation"
)

// Error is the single error type surfaced by the core. It carries a kind
// string and a human-readable message; stack traces never cross the store
// boundary.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error (uniqueness or referential guard).
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Validationf builds a validation error for malformed input.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// TransientStore wraps a connection or pool failure.
func TransientStore(msg string, cause error) *Error {
	return &Error{Kind: KindTransientStore, Message: msg, cause: cause}
}

// AggregationFailure wraps a rollup write failure. These are reported but
// never fail the enclosing visit record.
func AggregationFailure(msg string, cause error) *Error {
	return &Error{Kind: KindAggregation, Message: msg, cause: cause}
}

// KindOf returns the kind of err, or "" when err carries no kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsConflict reports whether err is a conflict error.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
