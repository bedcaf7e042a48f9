package feeds

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies why a feed could not be built
type ErrorKind string

const (
	KindInvalidParameter   ErrorKind = "INVALID_PARAMETER"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	KindUpstream           ErrorKind = "UPSTREAM"
)

// ErrInstanceIsPrivate is returned by the access policy for anonymous readers
// of a private instance
var ErrInstanceIsPrivate = errors.New("instance is private")

// Error is a feed build failure. Message is safe to show to clients, Err is not.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Err.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func invalidParameter(message string, err error) *Error {
	return newError(KindInvalidParameter, message, err)
}

func notFound(message string, err error) *Error {
	return newError(KindNotFound, message, err)
}

func unauthorized(err error) *Error {
	return newError(KindUnauthorized, "not logged in", err)
}

func serviceUnavailable(err error) *Error {
	return newError(KindServiceUnavailable, "instance is private", err)
}

func upstream(message string, err error) *Error {
	return newError(KindUpstream, message, err)
}

// StatusCode maps an error to the HTTP status of a feed response. NotFound is
// reported as a bad request so feed routes do not reveal whether an entity exists.
func StatusCode(err error) int {
	var feedErr *Error
	if !errors.As(err, &feedErr) {
		return http.StatusInternalServerError
	}

	switch feedErr.Kind {
	case KindInvalidParameter, KindNotFound:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client facing message for err
func PublicMessage(err error) string {
	var feedErr *Error
	if errors.As(err, &feedErr) {
		return feedErr.Message
	}
	return "internal error"
}

// KindOf returns the kind of err, or KindUpstream for foreign errors
func KindOf(err error) ErrorKind {
	var feedErr *Error
	if errors.As(err, &feedErr) {
		return feedErr.Kind
	}
	return KindUpstream
}
