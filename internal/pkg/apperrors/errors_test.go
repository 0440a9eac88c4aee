package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: bad address", ErrInvalidInput), http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrNotFound, http.StatusNotFound},
		{ErrRateLimited, http.StatusTooManyRequests},
		{fmt.Errorf("outer: %w", fmt.Errorf("%w: slow", ErrTimeout)), http.StatusGatewayTimeout},
		{fmt.Errorf("%w: 503", ErrExternalServiceFailure), http.StatusBadGateway},
		{ErrMisconfigured, http.StatusInternalServerError},
		{fmt.Errorf("%w: no API_KEYS", ErrMisconfigured), http.StatusInternalServerError},
		{fmt.Errorf("gate: %w", ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("client k1: %w", ErrRateLimited), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), "%v", tc.err)
	}
}
