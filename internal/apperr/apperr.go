// Package apperr carries classified errors from the core components to the
// HTTP boundary, which is the only place that turns them into a wire envelope.
package apperr

import (
	"errors"
	"net/http"
	"strings"
)

// Error is an expected, classified failure with an HTTP-facing status.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// New constructs a classified error.
func New(status int, message string) *Error {
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Status: status, Message: message}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message) }
func Internal(message string) *Error     { return New(http.StatusInternalServerError, message) }

// StatusOf reports the HTTP status of err, defaulting to 500 for anything
// that is not a classified error.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}

// MessageOf reports the user-visible message of err. Unclassified errors get
// the fixed internal message so details never leak to the wire.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error"
}

// IsClassified reports whether err carries an explicit status.
func IsClassified(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Join aggregates validation failures into a single error. Messages are
// comma-joined and the first error's status wins, so callers that want a
// deterministic status should pass errors in a fixed field order.
func Join(errs []*Error) *Error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return New(errs[0].Status, "Validation failed: "+strings.Join(msgs, ", "))
}
