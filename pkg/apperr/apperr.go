// Package apperr defines the error kinds surfaced by handlers and how they map to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by the collaborator or rule that produced it.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindIdentity     Kind = "identity_provider"
	KindStore        Kind = "store"
	KindObjectStore  Kind = "object_store"
	KindNotification Kind = "notification"
	KindInternal     Kind = "internal"
)

// Error carries a kind, the failing operation and a client-visible message.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return e.Op + ": " + e.Message
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind without a cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap returns an error of the given kind around err. The message shown to
// clients defaults to err's text when message is empty.
func Wrap(kind Kind, op string, err error, message string) *Error {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func Validation(op, message string) *Error { return New(KindValidation, op, message) }

func NotFound(op, message string) *Error { return New(KindNotFound, op, message) }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-visible message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code returned to clients.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
