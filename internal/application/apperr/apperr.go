// Package apperr is the error vocabulary shared by orchestrators and the web layer.
// Every failure an operation reports is one of three kinds, and the web layer
// maps each kind to exactly one response.
package apperr

import "errors"

// Kind classifies a failure.
type Kind uint8

const (
	// KindStore is any persistence failure. Its message is safe to show; its cause is not.
	KindStore Kind = iota
	// KindValidation is bad user input.
	KindValidation
	// KindNotFound is a reference to a row that does not exist.
	KindNotFound
)

// String returns the kind's log name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "store"
	}
}

// Error carries a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports bad user input.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NotFound reports a missing referenced row.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Store wraps a persistence failure. msg is shown to the user, err is only logged.
func Store(msg string, err error) error {
	return &Error{Kind: KindStore, Message: msg, Err: err}
}

// KindOf returns the kind of err. Errors that are not *Error count as store failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Something went wrong. Please try again."
}
