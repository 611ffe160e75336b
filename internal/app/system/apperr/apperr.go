// Package apperr is the error taxonomy shared by the gateway, the loaders,
// the invariant checker and the GraphQL resolvers.
//
// Every failure that reaches a client is an *Error carrying one Code. The
// GraphQL engine copies Extensions() into the response, so clients can
// branch on "code" without parsing messages.
package apperr

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// Code classifies a failure.
type Code string

const (
	InvalidArgument       Code = "INVALID_ARGUMENT"
	ReferenceNotFound     Code = "REFERENCE_NOT_FOUND"
	ConflictAlreadyExists Code = "CONFLICT_ALREADY_EXISTS"
	ReferentialBlock      Code = "REFERENTIAL_BLOCK"
	Unauthorized          Code = "UNAUTHORIZED"
	BackendUnavailable    Code = "BACKEND_UNAVAILABLE"
	Internal              Code = "INTERNAL"
)

// Error is a classified failure with a client-safe message.
type Error struct {
	Code Code
	Msg  string
	Err  error // underlying cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Extensions implements the graphql-go extensionser interface.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Code)}
}

// Is matches another *Error by code, so errors.Is(err, apperr.New(Unauthorized, ""))
// and the sentinel helpers below work across wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Msg == "" || t.Msg == e.Msg)
}

// New builds an *Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under code with a client-safe message.
func Wrap(code Code, err error, msg string) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// Unavailable wraps a storage failure.
func Unavailable(err error) *Error {
	return &Error{Code: BackendUnavailable, Msg: "the data store is unavailable, try again later", Err: err}
}

// CodeOf returns the classification of err. Unclassified context
// deadlines and driver network/timeout errors count as BackendUnavailable;
// anything else unclassified is Internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if IsBackend(err) {
		return BackendUnavailable
	}
	return Internal
}

// Is reports whether err carries code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsBackend reports whether err looks like an I/O failure talking to the store.
func IsBackend(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
}

// From converts any error into an *Error, preserving an existing
// classification.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if IsBackend(err) {
		return Unavailable(err)
	}
	return &Error{Code: Internal, Msg: "internal error", Err: err}
}
