package errs

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors for API responses and propagation policy.
type Kind string

const (
	ValidationFailed  Kind = "validation_failed"
	NotConfigured     Kind = "not_configured"
	ExchangeRejected  Kind = "exchange_rejected"
	Network           Kind = "network"
	InvalidQuantity   Kind = "invalid_quantity"
	NotFound          Kind = "not_found"
	NotActive         Kind = "not_active"
	NoData            Kind = "no_data"
	InternalInvariant Kind = "internal_invariant"
)

// Error is a classified engine error. Code carries the exchange error code
// when the failure originated from a remote rejection.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	wrapped error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a classified error
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, preserving it for errors.Is/As
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, wrapped: err}
}

// Rejected creates an ExchangeRejected error with the exchange code
func Rejected(code int, message string) *Error {
	return &Error{Kind: ExchangeRejected, Code: code, Message: message}
}

// KindOf extracts the Kind from err, or InternalInvariant when unclassified
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalInvariant
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
