package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/handler"
	"github.com/deppfellow/portfolio-backend/internal/middleware"
	"github.com/deppfellow/portfolio-backend/internal/ratelimit"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/deppfellow/portfolio-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandlers(s *server.Server) *handler.Handlers {
	return &handler.Handlers{
		Health:  handler.NewHealthHandler(s),
		System:  handler.NewSystemHandler(s),
		Contact: handler.NewContactController(s, service.NewContactService(s, nil, nil)),
	}
}

func newTestHost(t *testing.T, requireAuth bool) *echo.Echo {
	t.Helper()
	s := newTestServer(config.EnvDevelopment)
	s.Config.RateLimit.GeneralLimit = 100

	a, err := New(s, Routes(newTestHandlers(s)),
		WithStore(ratelimit.NewMemoryStore(time.Hour)),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return NewHost(s, a, middleware.NewMiddlewares(s), requireAuth)
}

func TestRoutes_Table(t *testing.T) {
	s := newTestServer(config.EnvDevelopment)
	a, err := New(s, Routes(newTestHandlers(s)), WithStore(ratelimit.NewMemoryStore(time.Hour)))
	require.NoError(t, err)

	var got []string
	for _, rt := range a.Router().Routes() {
		got = append(got, rt.Method+" "+rt.Pattern)
	}

	assert.Equal(t, []string{
		"GET /",
		"GET /health",
		"POST /api/contact",
		"GET /api/contact/messages",
		"GET /api/contact/stats",
		"GET /api/contact/messages/{id}",
		"DELETE /api/contact/messages/{id}",
		"GET /api/contact/test",
		"OPTIONS /api/contact",
		"OPTIONS /api/contact/messages",
		"OPTIONS /api/contact/stats",
		"OPTIONS /api/contact/test",
	}, got)
}

func TestHost_ServesPipelineRoutes(t *testing.T) {
	e := newTestHost(t, false)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Portfolio Backend API")
	assert.Contains(t, rec.Body.String(), "POST /api/contact")
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestHost_ServesMetrics(t *testing.T) {
	e := newTestHost(t, false)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/health"`)
}

func TestHost_GuardsAdminPaths(t *testing.T) {
	e := newTestHost(t, true)

	tests := []struct {
		method string
		target string
		status int
	}{
		{method: http.MethodGet, target: "/api/contact/messages", status: http.StatusUnauthorized},
		{method: http.MethodGet, target: "/api/contact/messages/", status: http.StatusUnauthorized},
		{method: http.MethodGet, target: "/api/contact/messages//", status: http.StatusUnauthorized},
		{method: http.MethodGet, target: "/api/contact/%6Dessages", status: http.StatusUnauthorized},
		{method: http.MethodDelete, target: "/api/contact/messages/3", status: http.StatusUnauthorized},
		{method: http.MethodGet, target: "/api/contact/stats", status: http.StatusUnauthorized},
		{method: http.MethodGet, target: "/api/contact/test", status: http.StatusUnauthorized},
		// Public routes stay reachable.
		{method: http.MethodPost, target: "/api/contact", status: http.StatusBadRequest},
		{method: http.MethodGet, target: "/health", status: http.StatusOK},
		{method: http.MethodOptions, target: "/api/contact/messages", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader("{}"))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
