// Package apperr holds the error kinds shared by every feature package and their
// HTTP status mapping. Feature packages declare their own sentinels wrapping one of
// these kinds so handlers can classify failures with errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrDuplicate       = errors.New("already exists")
	ErrAuth            = errors.New("authentication failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrExpired         = errors.New("expired")
	ErrUpload          = errors.New("upload failed")
	ErrUpstream        = errors.New("upstream failure")
	ErrInternal        = errors.New("internal error")
)

// Error is a failure with a caller-facing message classified under one of the kinds above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind whose message is safe to show to callers.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Message returns the caller-facing message for err. Errors that are not
// Public get fallback instead, so internal details never leave the process.
func Message(err error, fallback string) string {
	if !Public(err) {
		return fallback
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return err.Error()
}

// Status maps an error to the HTTP status code of its kind. Unknown errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicate), errors.Is(err, ErrExpired):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth), errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Public reports whether the error message may be shown to the caller.
// Server-side failures are answered with a generic message instead.
func Public(err error) bool {
	return Status(err) < http.StatusInternalServerError
}
