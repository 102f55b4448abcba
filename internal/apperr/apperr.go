// Package apperr defines the error taxonomy surfaced by the API. Handlers
// map an Error's Kind to an HTTP status at the boundary; everything else
// wraps with fmt.Errorf and lets the kind travel up the chain.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// KindInternal is an unexpected failure (store rollback, bug).
	KindInternal Kind = iota
	// KindValidation is missing or malformed input.
	KindValidation
	// KindUnauthorized is bad credentials or a missing/invalid token.
	KindUnauthorized
	// KindForbidden is an authenticated actor lacking permission.
	KindForbidden
	// KindNotFound is an absent resource.
	KindNotFound
	// KindConflict is a uniqueness violation (duplicate username/email).
	KindConflict
	// KindUpstream is an unreachable or misbehaving external service.
	KindUpstream
	// KindUnavailable is a feature whose backing service is not configured.
	KindUnavailable
)

// Error carries a kind alongside a user-visible message and an optional
// wrapped cause. The cause is for logs; only Msg reaches clients.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the kind to a response status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Validation(msg string) *Error   { return &Error{Kind: KindValidation, Msg: msg} }
func Unauthorized(msg string) *Error { return &Error{Kind: KindUnauthorized, Msg: msg} }
func Forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Msg: msg} }
func NotFound(msg string) *Error     { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) *Error     { return &Error{Kind: KindConflict, Msg: msg} }
func Unavailable(msg string) *Error  { return &Error{Kind: KindUnavailable, Msg: msg} }

// Upstream wraps a failure from an external service.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: err}
}

// Internal wraps an unexpected failure. The wrapped error is logged, never
// serialized.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Msg: "internal server error", Err: err}
}

// From extracts an *Error from err's chain, or classifies err as internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
