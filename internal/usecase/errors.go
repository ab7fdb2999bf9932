package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the machine-readable failure class returned to clients in
// the "error" field of a failed /chat response.
type ErrorCode string

const (
	ErrorInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrorInvalidQuestion ErrorCode = "INVALID_QUESTION"
	ErrorRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorUpstream        ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal        ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatus maps the code onto the status the chat endpoint answers with.
// Upstream and internal failures both surface as 500.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrorInvalidInput, ErrorInvalidQuestion:
		return http.StatusBadRequest
	case ErrorRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified chat failure. Reason is a short snake_case detail
// such as "query_too_long".
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Classify returns err as an *Error. Foreign errors become INTERNAL_ERROR
// with reason "unexpected_error".
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr
	}
	return newError(ErrorInternal, "unexpected_error", err)
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
