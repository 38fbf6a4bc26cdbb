package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindInvalidState      Kind = "invalid_state"
	KindInsufficientStock Kind = "insufficient_stock"
	KindOutOfStock        Kind = "out_of_stock"
	KindLimitReached      Kind = "limit_reached"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// Error is the single structured error surfaced to callers. Message is safe
// to show to a client; Err is kept for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func InvalidInput(format string, args ...any) *Error { return New(KindInvalidInput, format, args...) }
func NotFound(format string, args ...any) *Error     { return New(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) *Error    { return New(KindForbidden, format, args...) }
func InvalidState(format string, args ...any) *Error { return New(KindInvalidState, format, args...) }

// Internalize passes classified errors through untouched and turns anything
// else into an internal error carrying msg.
func Internalize(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Public returns the kind and the client-facing message for err.
func Public(err error) (Kind, string) {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != KindInternal {
		return ae.Kind, ae.Message
	}
	if errors.As(err, &ae) && ae.Message != "" {
		return KindInternal, ae.Message
	}
	return KindInternal, "internal server error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindInvalidState, KindInsufficientStock, KindOutOfStock, KindLimitReached:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
