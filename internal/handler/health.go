package handler

import (
	"context"
	"slices"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/logger"
	"github.com/deppfellow/portfolio-backend/internal/server"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

type dependencyCheck struct {
	name string
	ping func(ctx context.Context) error
}

// HealthHandler reports liveness plus the state of the database and redis.
// It always answers 200; a failing dependency turns the status to degraded.
type HealthHandler struct {
	Handler
	checks  []dependencyCheck
	timeout time.Duration
	now     func() time.Time
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	h := &HealthHandler{
		Handler: NewHandler(s),
		timeout: 5 * time.Second,
		now:     time.Now,
	}

	obs := s.Config.Observability
	if obs != nil && !obs.HealthChecks.Enabled {
		return h
	}
	if obs != nil && obs.HealthChecks.Timeout > 0 {
		h.timeout = obs.HealthChecks.Timeout
	}

	enabled := func(name string) bool {
		return obs == nil || len(obs.HealthChecks.Checks) == 0 || slices.Contains(obs.HealthChecks.Checks, name)
	}

	if s.DB != nil && enabled("database") {
		h.checks = append(h.checks, dependencyCheck{name: "database", ping: s.DB.Ping})
	}
	if s.Redis != nil && enabled("redis") {
		h.checks = append(h.checks, dependencyCheck{
			name: "redis",
			ping: func(ctx context.Context) error { return s.Redis.Ping(ctx).Err() },
		})
	}

	return h
}

func (h *HealthHandler) CheckHealth(req *envelope.Request, _ ...string) (any, error) {
	start := h.now()

	log := logger.FromContext(req.Context(), h.server.Logger).With().
		Str("operation", "health_check").
		Logger()

	status := StatusHealthy
	checks := make(map[string]any, len(h.checks))

	for _, check := range h.checks {
		ctx, cancel := context.WithTimeout(req.Context(), h.timeout)
		checkStart := time.Now()
		err := check.ping(ctx)
		elapsed := time.Since(checkStart)
		cancel()

		if err != nil {
			status = StatusDegraded
			checks[check.name] = map[string]any{
				"status":        "unhealthy",
				"response_time": elapsed.String(),
				"error":         err.Error(),
			}

			log.Error().
				Err(err).
				Str("check", check.name).
				Dur("response_time", elapsed).
				Msg("health check failed")

			h.server.LoggerService.RecordCustomEvent("HealthCheckError", map[string]interface{}{
				"check_type":       check.name,
				"operation":        "health_check",
				"error_type":       check.name + "_unhealthy",
				"response_time_ms": elapsed.Milliseconds(),
				"error_message":    err.Error(),
			})
			continue
		}

		checks[check.name] = map[string]any{
			"status":        StatusHealthy,
			"response_time": elapsed.String(),
		}
	}

	log.Debug().
		Str("status", status).
		Dur("total_duration", time.Since(start)).
		Msg("health check completed")

	return map[string]any{
		"status":      status,
		"timestamp":   start.UTC().Format(time.RFC3339),
		"version":     h.server.Config.Primary.Version,
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}, nil
}
