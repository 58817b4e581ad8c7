package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrNotFound
	ErrValidation
	ErrInvalidInput
	// ErrConfiguration marks host configuration that can never produce a map:
	// tier/color length mismatch, empty geometry, degenerate bounds.
	ErrConfiguration
	// ErrFetch marks a failed geometry download or decode.
	ErrFetch
)

func (k Kind) String() string {
	switch k {
	case ErrNotFound:
		return "not_found"
	case ErrValidation:
		return "validation"
	case ErrInvalidInput:
		return "invalid_input"
	case ErrConfiguration:
		return "configuration"
	case ErrFetch:
		return "fetch"
	default:
		return "internal"
	}
}

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

func InvalidInputf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func Configuration(msg string) *Error {
	return &Error{Kind: ErrConfiguration, Message: msg}
}

func Configurationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Fetch wraps a geometry retrieval failure
func Fetch(err error) *Error {
	return &Error{Kind: ErrFetch, Message: "geometry fetch failed", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Is reports whether any *Error in err's chain has the given kind
func Is(err error, kind Kind) bool {
	var appErr *Error
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Err
	}
	return false
}
