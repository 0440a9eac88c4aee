package apperrors

import (
	"errors"
	"net/http"
)

// Standard application errors
var (
	// ErrNotFound is returned when a requested resource is not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when the input provided by the client is invalid.
	ErrInvalidInput = errors.New("invalid input provided")

	// ErrUnauthorized is returned when a request lacks valid authentication credentials.
	ErrUnauthorized = errors.New("unauthorized access")

	// ErrMisconfigured is returned when the server itself is not set up to serve the request.
	ErrMisconfigured = errors.New("server misconfigured")

	// ErrRateLimited is returned when a caller exceeded its request budget for the current window.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrExternalServiceFailure is returned when an interaction with an external service fails.
	ErrExternalServiceFailure = errors.New("external service interaction failed")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInternal is returned for unexpected internal system errors.
	ErrInternal = errors.New("internal system error")
)

// HTTPStatus maps an error chain to the status code it should surface as.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrExternalServiceFailure):
		return http.StatusBadGateway
	case errors.Is(err, ErrMisconfigured):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
