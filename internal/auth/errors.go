package auth

import (
	"errors"
	"net/http"
)

// Credential failure kinds. All of them are terminal for the request.
var (
	ErrMalformedCredential = errors.New("could not validate credentials")
	ErrExpiredCredential   = errors.New("token expired")
	ErrUnknownSubject      = errors.New("could not find user")
	ErrInsufficientScope   = errors.New("not enough permissions")
)

// Error is the failure returned by Resolve and Authorize. Kind is one of the
// sentinels above; Scopes carries the set the gate required, if any.
type Error struct {
	Kind   error
	Scopes Scopes
	cause  error
}

func newError(kind error, scopes Scopes, cause error) *Error {
	return &Error{Kind: kind, Scopes: scopes, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Kind.Error() + ": " + e.cause.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Kind }

// Cause is the underlying decode or lookup error. It is for logs only and must
// not reach the client.
func (e *Error) Cause() error { return e.cause }

// Status maps an auth failure to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrExpiredCredential),
		errors.Is(err, ErrMalformedCredential),
		errors.Is(err, ErrInsufficientScope):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnknownSubject):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Detail is the client-facing message for an auth failure.
func Detail(err error) string {
	switch {
	case errors.Is(err, ErrExpiredCredential):
		return "Token expired"
	case errors.Is(err, ErrMalformedCredential):
		return "Could not validate credentials"
	case errors.Is(err, ErrInsufficientScope):
		return "Not enough permissions"
	case errors.Is(err, ErrUnknownSubject):
		return "Could not find user"
	default:
		return "Internal server error"
	}
}

// Challenge is the WWW-Authenticate value for a 401, or "" when none applies.
func Challenge(err error) string {
	if Status(err) != http.StatusUnauthorized {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && !ae.Scopes.Empty() {
		return `Bearer scope="` + ae.Scopes.String() + `"`
	}
	return "Bearer"
}

// Kind names the failure for logs and metrics labels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, ErrExpiredCredential):
		return "expired"
	case errors.Is(err, ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(err, ErrInsufficientScope):
		return "insufficient_scope"
	default:
		return "internal"
	}
}
