package api

import (
	"errors"
	"net/http"

	"findash/internal/auth"
	"findash/internal/core"
)

// StatusFor maps the classified error of a Result to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrMissingField),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, ErrUnknownAction),
		errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, auth.ErrAccountMismatch),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrCardNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrCardExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
