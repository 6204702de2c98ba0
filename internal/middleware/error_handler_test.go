package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestErrorHandler(production bool) *ErrorHandler {
	h := NewErrorHandler(production, nil, nil)
	h.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return h
}

func errorRequest(t *testing.T) *envelope.Request {
	t.Helper()
	req, err := envelope.FromHTTP(httptest.NewRequest(http.MethodGet, "/api/thing?x=1", nil), envelope.Options{})
	require.NoError(t, err)
	return req
}

func TestErrorHandlerPassesThrough(t *testing.T) {
	w, _ := newWriter()
	resp, err := newTestErrorHandler(false).Handle(w, errorRequest(t))
	assert.NoError(t, err)
	assert.Nil(t, resp)
}

func TestErrorHandlerDevelopmentBody(t *testing.T) {
	resp := newTestErrorHandler(false).Translate(errorRequest(t), errors.New("database exploded"))

	require.Equal(t, http.StatusInternalServerError, resp.Status)
	body := resp.Body.(map[string]any)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["code"])
	assert.Equal(t, "database exploded", body["message"])
	assert.Equal(t, "2026-03-04T05:06:07Z", body["timestamp"])

	debug, ok := body["debug"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, debug["file"], "error_handler_test.go")
	assert.NotEmpty(t, debug["trace"])
	assert.Equal(t, map[string]any{
		"method":  http.MethodGet,
		"path":    "/api/thing",
		"raw_uri": "/api/thing?x=1",
	}, debug["request_info"])
}

func TestErrorHandlerProductionBody(t *testing.T) {
	resp := newTestErrorHandler(true).Translate(errorRequest(t), errors.New("database exploded"))

	require.Equal(t, http.StatusInternalServerError, resp.Status)
	body := resp.Body.(map[string]any)
	assert.Equal(t, "Internal Server Error", body["message"])
	assert.NotContains(t, body, "debug")
}

func TestErrorHandlerKeepsDeclaredStatus(t *testing.T) {
	resp := newTestErrorHandler(true).Translate(errorRequest(t), errs.NewRouteNotFoundError(http.MethodGet, "/api/thing"))

	assert.Equal(t, http.StatusNotFound, resp.Status)
	body := resp.Body.(map[string]any)
	assert.Equal(t, http.StatusNotFound, body["status_code"])
	assert.Contains(t, body["message"], "/api/thing")
}

func TestErrorHandlerRetryAfterAndDetails(t *testing.T) {
	limited := errs.NewRateLimitedError("slow down", 30).WithDetails(map[string]any{
		"retry_after": 30,
		"code":        "ignored",
	})

	resp := newTestErrorHandler(true).Translate(errorRequest(t), limited)

	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, "30", resp.Headers.Get("Retry-After"))
	body := resp.Body.(map[string]any)
	assert.Equal(t, 30, body["retry_after"])
	assert.Equal(t, limited.Code, body["code"])
}

func TestErrorHandlerFieldErrors(t *testing.T) {
	invalid := errs.NewBadRequestError("Validation failed", true, nil, []errs.FieldError{
		{Field: "email", Error: "must be a valid email address"},
	}, nil)

	resp := newTestErrorHandler(false).Translate(errorRequest(t), invalid)

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	body := resp.Body.(map[string]any)
	assert.Equal(t, "Validation failed", body["message"])
	assert.Len(t, body["errors"], 1)
}
