// Package apperror defines the error taxonomy shared by the HTTP layer and
// the services behind it. Handlers map an *Error to its HTTP status and a
// JSON body of the form {"error": <code>, "message": <message>}.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a classified application error.
type Error struct {
	Code    string
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// BadRequest marks input validation failures. Rejected before any side effect.
func BadRequest(format string, args ...any) *Error {
	return &Error{Code: "bad_request", Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized marks a missing or mismatched bearer token.
func Unauthorized() *Error {
	return &Error{Code: "unauthorized", Status: http.StatusUnauthorized, Message: "missing or invalid bearer token"}
}

// NotFound marks a referenced entity that does not exist (or vanished
// mid-transaction, aborting it).
func NotFound(format string, args ...any) *Error {
	return &Error{Code: "not_found", Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict marks an operation invalid for the entity's current state.
func Conflict(format string, args ...any) *Error {
	return &Error{Code: "conflict", Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps unexpected failures. The message is returned to the client
// verbatim, so callers should keep it generic and log the cause themselves.
func Internal(format string, args ...any) *Error {
	return &Error{Code: "internal", Status: http.StatusInternalServerError, Message: fmt.Sprintf(format, args...)}
}

// From classifies err: an *Error passes through, anything else becomes a
// generic Internal error.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return &Error{Code: "internal", Status: http.StatusInternalServerError, Message: "unexpected error"}
}

// IsNotFound reports whether err is a NotFound classification.
func IsNotFound(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == http.StatusNotFound
}

// IsBadRequest reports whether err is a BadRequest classification.
func IsBadRequest(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == http.StatusBadRequest
}

// IsConflict reports whether err is a Conflict classification.
func IsConflict(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Status == http.StatusConflict
}
