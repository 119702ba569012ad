package auth

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindInternal
	KindNotFound
)

// Challenge tells the client which credential to resupply after a 401.
type Challenge int

const (
	ChallengeNone Challenge = iota
	ChallengeBearer
	ChallengeCode
)

// Error is the only error shape returned by the Authenticator.
type Error struct {
	Kind      Kind
	Challenge Challenge
	Message   string
}

func (e *Error) Error() string { return e.Message }

// Status maps the kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ChallengeHeader returns the response header name and value for the challenge, or
// empty strings when there is none.
func (e *Error) ChallengeHeader(realm string) (string, string) {
	switch e.Challenge {
	case ChallengeBearer:
		return "WWW-Authenticate", `Bearer realm="` + realm + `"`
	case ChallengeCode:
		return CodeHeader, `realm="` + realm + `"`
	}
	return "", ""
}

func unauthorizedBearer(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Challenge: ChallengeBearer, Message: msg}
}

func unauthorizedCode(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Challenge: ChallengeCode, Message: msg}
}

func internal(msg string) *Error {
	return &Error{Kind: KindInternal, Message: msg}
}

// NotFound is used by handlers that share the error convention.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// AsError unwraps err into an *Error, treating anything else as internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internal("internal server error")
}
