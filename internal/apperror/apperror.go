// Package apperror defines the error kinds shared by the workflow services.
// Callers wrap a kind with fmt.Errorf("%w: ...") and inspect it with errors.Is.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrCredential    = errors.New("invalid credentials")
	ErrTerminalState = errors.New("task is completed")
	ErrConflict      = errors.New("stale version")

	// ErrPasswordChangeRequired blocks every action except a password change
	// while the account still carries its first-login flag.
	ErrPasswordChangeRequired = fmt.Errorf("%w: password change required", ErrAuthorization)
)

// Validation returns a validation error with a formatted detail.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Forbidden returns an authorization error with a formatted detail.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthorization, fmt.Sprintf(format, args...))
}

// NotFound reports a missing entity of the given kind.
func NotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

// HTTPStatus maps an error kind to the response status code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrCredential):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTerminalState), errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
