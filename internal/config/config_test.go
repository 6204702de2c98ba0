package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PORTFOLIO_DATABASE__HOST", "localhost")
	t.Setenv("PORTFOLIO_DATABASE__USER", "portfolio")
	t.Setenv("PORTFOLIO_DATABASE__NAME", "portfolio")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Primary.Env)
	assert.Equal(t, 100, cfg.RateLimit.GeneralLimit)
	assert.Equal(t, 900*time.Second, cfg.RateLimit.GeneralWindowDuration())
	assert.Equal(t, 5, cfg.RateLimit.ContactLimit)
	assert.Equal(t, 900*time.Second, cfg.RateLimit.ContactWindowDuration())
	assert.Equal(t, "/api/contact", cfg.RateLimit.ContactPrefix)
	assert.Equal(t, "file", cfg.RateLimit.Store)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "portfolio-api", cfg.Observability.ServiceName)
	assert.Equal(t, EnvDevelopment, cfg.Observability.Environment)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORTFOLIO_PRIMARY__ENV", "production")
	t.Setenv("PORTFOLIO_RATE_LIMIT__GENERAL_LIMIT", "2")
	t.Setenv("PORTFOLIO_RATE_LIMIT__GENERAL_WINDOW", "60")
	t.Setenv("PORTFOLIO_CORS__ALLOWED_ORIGINS", "https://allowed.example, https://other.example/")
	t.Setenv("PORTFOLIO_CORS__ALLOW_UNLISTED_ORIGINS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 2, cfg.RateLimit.GeneralLimit)
	assert.Equal(t, 60, cfg.RateLimit.GeneralWindow)
	assert.Equal(t, []string{"https://allowed.example", "https://other.example/"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.CORS.AllowUnlistedOrigins)
	assert.Equal(t, EnvProduction, cfg.Observability.Environment)
}

func TestLoadConfigRejectsUnknownEnvironment(t *testing.T) {
	setRequired(t)
	t.Setenv("PORTFOLIO_PRIMARY__ENV", "moon")

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestRedisStoreNeedsAddress(t *testing.T) {
	setRequired(t)
	t.Setenv("PORTFOLIO_RATE_LIMIT__STORE", "redis")

	_, err := LoadConfig()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.address")
}

func TestInvalidEmailProvider(t *testing.T) {
	setRequired(t)
	t.Setenv("PORTFOLIO_EMAIL__PROVIDER", "pigeon")

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestObservabilityValidate(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	require.NoError(t, cfg.Validate())

	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}
