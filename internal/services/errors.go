package services

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindConflict     ErrorKind = "conflict"
	KindUpstream     ErrorKind = "upstream"
	KindInvalid      ErrorKind = "invalid"
	KindInternal     ErrorKind = "internal"
)

// AppError is what handlers render as {success:false, statusCode, message}.
type AppError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NotFound(msg string) *AppError {
	return &AppError{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: msg}
}

func Forbidden(msg string) *AppError {
	return &AppError{Kind: KindForbidden, Status: http.StatusForbidden, Message: msg}
}

func Conflict(msg string) *AppError {
	return &AppError{Kind: KindConflict, Status: http.StatusConflict, Message: msg}
}

func Invalid(msg string) *AppError {
	return &AppError{Kind: KindInvalid, Status: http.StatusBadRequest, Message: msg}
}

func Upstream(msg string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Status: http.StatusBadGateway, Message: msg, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Internal server error", Err: err}
}

// AsAppError returns err as an *AppError, wrapping anything else as Internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
