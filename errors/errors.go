package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindFetch        Kind = "fetch"
	KindExtract      Kind = "extract"
	KindMissingData  Kind = "missing_data"
	KindStorage      Kind = "storage"
	KindInternal     Kind = "internal"
)

type AppError struct {
	Kind    Kind   `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode maps the error kind onto the HTTP status used by the handlers.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindFetch, KindExtract:
		return http.StatusBadGateway
	case KindMissingData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func E(kind Kind, op string, err error, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

func InvalidInput(op string, err error, message string) *AppError {
	return E(KindInvalidInput, op, err, message)
}

func FetchFailed(op string, err error, message string) *AppError {
	return E(KindFetch, op, err, message)
}

func ExtractFailed(op string, err error, message string) *AppError {
	return E(KindExtract, op, err, message)
}

func MissingData(op string, err error, message string) *AppError {
	return E(KindMissingData, op, err, message)
}

func Storage(op string, err error, message string) *AppError {
	return E(KindStorage, op, err, message)
}

func Internal(op string, err error, message string) *AppError {
	return E(KindInternal, op, err, message)
}

// Is reports whether any AppError in err's chain has the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	for err != nil {
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Err
	}
	return false
}

// StatusCode returns the HTTP status for err, 500 when it carries no kind.
func StatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}
