package webhook

import (
	"errors"
	"net/http"
)

var (
	// ErrMissingSecret means no signing secret is configured. This is a
	// server misconfiguration, not a client fault.
	ErrMissingSecret = errors.New("webhook signing secret is not configured")

	// ErrMissingSignature means the request carried no signature header.
	ErrMissingSignature = errors.New("webhook signature header is missing")

	// ErrSignatureMismatch means the signature did not match the request.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")

	// ErrInvalidForm means the request body could not be parsed as a form.
	ErrInvalidForm = errors.New("webhook form body is invalid")
)

// StatusCode maps a validation error to the HTTP status returned to the
// provider.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMissingSecret):
		return http.StatusInternalServerError
	case errors.Is(err, ErrInvalidForm):
		return http.StatusBadRequest
	default:
		return http.StatusForbidden
	}
}
