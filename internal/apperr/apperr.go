// Package apperr classifies failures so the HTTP layer can map them to
// status codes without knowing which component raised them.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Conflict
	Auth
	Transport
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Auth:
		return "auth"
	case Transport:
		return "transport"
	default:
		return "internal"
	}
}

// Error carries a caller-safe Message; Err holds the underlying cause, if any.
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

// Is matches sentinels by kind and message so that a wrapped copy still
// compares equal to the package-level value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap attaches cause to a copy of sentinel.
func Wrap(sentinel *Error, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Message: sentinel.Message, Err: cause}
}

func Validationf(msg string) *Error { return New(Validation, msg) }

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Status maps err to an HTTP status code and a message that is safe to
// return to the client.
func Status(err error) (int, string) {
	var ae *Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, "Server Error"
	}
	switch ae.Kind {
	case Validation:
		return http.StatusBadRequest, ae.Message
	case NotFound:
		return http.StatusNotFound, ae.Message
	case Conflict:
		return http.StatusConflict, ae.Message
	case Auth:
		return http.StatusUnauthorized, ae.Message
	case Transport:
		return http.StatusInternalServerError, ae.Message
	default:
		return http.StatusInternalServerError, "Server Error"
	}
}
