package errs

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewRouteNotFoundError("GET", "/x"), http.StatusNotFound},
		{"wrapped", fmt.Errorf("outer: %w", NewPayloadTooLargeError()), http.StatusRequestEntityTooLarge},
		{"pkg errors wrap", errors.Wrap(NewRateLimitedError("slow down", 60), "ctx"), http.StatusTooManyRequests},
		{"invalid handler", NewInvalidHandlerError("bad"), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestRouteNotFoundMessage(t *testing.T) {
	err := NewRouteNotFoundError("DELETE", "/api/nothing")

	assert.Equal(t, "Route not found: DELETE /api/nothing", err.Error())
	assert.Equal(t, "ROUTE_NOT_FOUND", err.Code)
}

func TestRateLimitedCarriesRetryAfter(t *testing.T) {
	err := NewRateLimitedError("Rate limit exceeded", 900)

	assert.Equal(t, 900, err.RetryAfter)
	assert.Equal(t, "TOO_MANY_REQUESTS", err.Code)
	assert.Equal(t, "900", err.Action.Value)
}

func TestWithMessageDoesNotMutate(t *testing.T) {
	base := NewNotFoundError("Resource not found", false, nil)
	custom := base.WithMessage("Contact message not found")

	assert.Equal(t, "Resource not found", base.Message)
	assert.Equal(t, "Contact message not found", custom.Message)
	assert.Equal(t, base.Status, custom.Status)
}
