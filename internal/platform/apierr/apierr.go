package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to clients. Handlers key off Code, not the wrapped
// error text.
const (
	CodeNotFound         = "not_found"
	CodeForbidden        = "forbidden"
	CodeUnauthenticated  = "unauthenticated"
	CodeValidation       = "validation"
	CodeConflict         = "conflict"
	CodeNoTeacher        = "no_teacher_available"
	CodeNoAdmin          = "no_admin_available"
	CodeUploadEmpty      = "upload_empty"
	CodeUploadTooLarge   = "upload_too_large"
	CodeInternal         = "internal"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the client-safe detail string. Internal errors keep their
// cause out of responses.
func (e *Error) Message() string {
	if e == nil || e.Err == nil || e.Code == CodeInternal {
		return ""
	}
	return e.Err.Error()
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

func Forbidden(format string, args ...any) *Error {
	return New(http.StatusForbidden, CodeForbidden, fmt.Errorf(format, args...))
}

func Unauthenticated(format string, args ...any) *Error {
	return New(http.StatusUnauthorized, CodeUnauthenticated, fmt.Errorf(format, args...))
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return New(http.StatusConflict, CodeConflict, fmt.Errorf(format, args...))
}

// Unavailable reports that no eligible recipient exists; code carries the
// missing role (CodeNoTeacher or CodeNoAdmin).
func Unavailable(code string, format string, args ...any) *Error {
	return New(http.StatusServiceUnavailable, code, fmt.Errorf(format, args...))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// From coerces any error to *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
