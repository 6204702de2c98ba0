package middleware

import (
	"strconv"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/lib/metrics"
	"github.com/deppfellow/portfolio-backend/internal/logger"
	"github.com/deppfellow/portfolio-backend/internal/ratelimit"
	"github.com/rs/zerolog"
)

// EventRecorder records APM custom events. *logger.LoggerService
// implements it.
type EventRecorder interface {
	RecordCustomEvent(eventType string, params map[string]interface{})
}

// RateLimit rejects clients that exhausted their sliding-window budget.
//
// A store failure is logged and the request is let through.
type RateLimit struct {
	limiter *ratelimit.Limiter
	logger  *zerolog.Logger
	events  EventRecorder
	metrics *metrics.Metrics
}

func NewRateLimit(limiter *ratelimit.Limiter, log *zerolog.Logger, events EventRecorder, m *metrics.Metrics) *RateLimit {
	return &RateLimit{
		limiter: limiter,
		logger:  log,
		events:  events,
		metrics: m,
	}
}

func (r *RateLimit) Handle(_ HeaderWriter, req *envelope.Request) (*envelope.Response, error) {
	log := logger.FromContext(req.Context(), r.logger)

	decision, err := r.limiter.Check(req.Context(), req.ClientIP(), req.Method(), req.Path())
	if err != nil {
		log.Error().
			Err(err).
			Str("ip", req.ClientIP()).
			Msg("rate limit store unavailable, letting request through")
		r.metrics.StoreError()
		return nil, nil
	}
	if decision.Allowed {
		return nil, nil
	}

	log.Warn().
		Str("ip", req.ClientIP()).
		Str("category", string(decision.Category)).
		Int("count", decision.Count).
		Int("limit", decision.Limit).
		Msg("rate limit exceeded")
	r.RecordRateLimitHit(req.Path(), decision)

	message := "Too many requests. Please try again later."
	if decision.Category == ratelimit.CategoryContact {
		message = "Too many contact requests. Please try again later."
	}
	limited := errs.NewRateLimitedError(message, decision.RetryAfter)

	return envelope.NewResponse(limited.Status, map[string]any{
		"error":       "Rate limit exceeded",
		"message":     limited.Message,
		"retry_after": limited.RetryAfter,
	}).WithHeader("Retry-After", strconv.Itoa(limited.RetryAfter)), nil
}

// RecordRateLimitHit reports a rejection to APM and Prometheus.
func (r *RateLimit) RecordRateLimitHit(endpoint string, decision ratelimit.Decision) {
	r.metrics.RateLimitHit(string(decision.Category))

	if r.events != nil {
		r.events.RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint": endpoint,
			"category": string(decision.Category),
			"limit":    decision.Limit,
		})
	}
}
