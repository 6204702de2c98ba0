package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/lib/metrics"
	"github.com/deppfellow/portfolio-backend/internal/ratelimit"
	"github.com/deppfellow/portfolio-backend/internal/router"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(env string) *server.Server {
	cfg := config.DefaultConfig()
	cfg.Primary.Env = env
	cfg.RateLimit.GeneralLimit = 2
	cfg.RateLimit.GeneralWindow = 60
	log := zerolog.Nop()
	return &server.Server{Config: cfg, Logger: &log, Metrics: metrics.New()}
}

func testRoutes(r *router.Router, _ *router.Registry) error {
	r.Get("/", router.Static(http.StatusOK, map[string]any{"ok": true}))
	r.Get("/api/contact/messages/{id}", router.HandlerFunc(func(_ *envelope.Request, params ...string) (any, error) {
		return map[string]any{"id": params[0]}, nil
	}))
	r.Get("/boom", router.HandlerFunc(func(*envelope.Request, ...string) (any, error) {
		panic("kaboom")
	}))
	return r.Err()
}

func newTestApp(t *testing.T, s *server.Server) *App {
	t.Helper()
	a, err := New(s, testRoutes,
		WithStore(ratelimit.NewMemoryStore(time.Hour)),
		WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func serve(a http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestApp_RateLimitsAfterBudget(t *testing.T) {
	a := newTestApp(t, newTestServer(config.EnvDevelopment))

	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, serve(a, http.MethodGet, "/", nil).Code)

	rec := serve(a, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestApp_RouteNotFound(t *testing.T) {
	a := newTestApp(t, newTestServer(config.EnvDevelopment))

	rec := serve(a, http.MethodGet, "/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ROUTE_NOT_FOUND", body["code"])
	assert.Equal(t, "Route not found: GET /missing", body["message"])
	assert.Equal(t, true, body["error"])
}

func TestApp_PanicBecomesServerError(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		wantDebug bool
		message   string
	}{
		{name: "development", env: config.EnvDevelopment, wantDebug: true, message: "panic: kaboom"},
		{name: "production", env: config.EnvProduction, wantDebug: false, message: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(tt.env)
			a := newTestApp(t, s)

			var rec *httptest.ResponseRecorder
			require.NotPanics(t, func() {
				rec = serve(a, http.MethodGet, "/boom", nil)
			})

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, tt.message, body["message"])
			_, hasDebug := body["debug"]
			assert.Equal(t, tt.wantDebug, hasDebug)
		})
	}
}

func TestApp_BlocksUnlistedOrigin(t *testing.T) {
	a := newTestApp(t, newTestServer(config.EnvDevelopment))

	rec := serve(a, http.MethodGet, "/", map[string]string{"Origin": "https://evil.example"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "https://evil.example", decode(t, rec)["origin"])
}

func TestApp_PathParameters(t *testing.T) {
	a := newTestApp(t, newTestServer(config.EnvDevelopment))

	for _, target := range []string{"/api/contact/messages/42", "/api/contact/messages/42/"} {
		rec := serve(a, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "42", decode(t, rec)["id"], target)
	}
}

func TestApp_SecurityHeadersOnEveryResponse(t *testing.T) {
	a := newTestApp(t, newTestServer(config.EnvDevelopment))

	for _, target := range []string{"/", "/missing"} {
		rec := serve(a, http.MethodGet, target, nil)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"), target)
	}
}

func TestApp_RecordsRouteMetrics(t *testing.T) {
	s := newTestServer(config.EnvDevelopment)
	a := newTestApp(t, s)

	serve(a, http.MethodGet, "/api/contact/messages/7", nil)
	serve(a, http.MethodGet, "/missing", nil)

	rec := httptest.NewRecorder()
	s.Metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out := rec.Body.String()
	assert.True(t, strings.Contains(out, `route="/api/contact/messages/{id}"`))
	assert.True(t, strings.Contains(out, `route="unmatched"`))
}

func TestNew_RejectsBadRegistration(t *testing.T) {
	s := newTestServer(config.EnvDevelopment)

	_, err := New(s, func(r *router.Router, _ *router.Registry) error {
		r.Get("/x", router.Action("missing", "index"))
		return r.Err()
	}, WithStore(ratelimit.NewMemoryStore(time.Hour)))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to register routes")
}

func TestNewStore(t *testing.T) {
	s := newTestServer(config.EnvDevelopment)
	cfg := LimiterConfig(s.Config)

	s.Config.RateLimit.Store = "memory"
	store, err := NewStore(s, cfg)
	require.NoError(t, err)
	assert.IsType(t, &ratelimit.MemoryStore{}, store)

	s.Config.RateLimit.Store = "redis"
	_, err = NewStore(s, cfg)
	assert.Error(t, err)

	s.Config.RateLimit.Store = "file"
	s.Config.RateLimit.FilePath = t.TempDir() + "/limits.json"
	store, err = NewStore(s, cfg)
	require.NoError(t, err)
	assert.IsType(t, &ratelimit.FileStore{}, store)
	assert.NoError(t, store.Close())
}
