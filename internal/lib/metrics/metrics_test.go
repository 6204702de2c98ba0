package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	return rec.Body.String()
}

func TestObserveRequest(t *testing.T) {
	m := New()

	m.ObserveRequest(http.MethodGet, "/health", http.StatusOK, 10*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "/health", http.StatusOK, 20*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `portfolio_api_http_requests_total{method="GET",route="/health",status="200"} 2`)
	assert.Contains(t, body, "portfolio_api_http_request_duration_seconds_bucket")
}

func TestRateLimitHitAndFault(t *testing.T) {
	m := New()

	m.RateLimitHit("contact")
	m.Fault("NOT_FOUND", http.StatusNotFound)
	m.StoreError()

	body := scrape(t, m)
	assert.Contains(t, body, `portfolio_api_rate_limit_hits_total{category="contact"} 1`)
	assert.Contains(t, body, `portfolio_api_faults_total{code="NOT_FOUND",status="404"} 1`)
	assert.Contains(t, body, "portfolio_api_rate_limit_store_errors_total 1")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RateLimitHit("general")
		m.Fault("X", 500)
		m.StoreError()
	})
}
