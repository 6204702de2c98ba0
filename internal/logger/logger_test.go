package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFromContextFallsBack(t *testing.T) {
	var buf bytes.Buffer
	fallback := zerolog.New(&buf)

	got := FromContext(context.Background(), &fallback)
	got.Info().Msg("hello")

	assert.Contains(t, buf.String(), "hello")
}

func TestFromContextPrefersRequestLogger(t *testing.T) {
	var requestBuf, rootBuf bytes.Buffer
	requestLogger := zerolog.New(&requestBuf).With().Str("request_id", "abc").Logger()
	root := zerolog.New(&rootBuf)

	ctx := IntoContext(context.Background(), &requestLogger)
	FromContext(ctx, &root).Info().Msg("scoped")

	assert.Contains(t, requestBuf.String(), `"request_id":"abc"`)
	assert.Empty(t, rootBuf.String())
}

func TestNewLoggerLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.DefaultObservabilityConfig()
	cfg.Logging.Level = "warn"
	cfg.Environment = config.EnvProduction

	l := newLogger(&buf, cfg)
	l.Info().Msg("dropped")
	l.Warn().Msg("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"service":"portfolio-api"`)
	assert.Contains(t, buf.String(), `"environment":"production"`)
}

func TestLoggerServiceWithoutLicenseIsNoop(t *testing.T) {
	service := NewLoggerService(config.DefaultObservabilityConfig())

	assert.Nil(t, service.GetApplication())
	service.RecordCustomEvent("Anything", map[string]interface{}{"k": "v"})
	service.Shutdown()
}

func TestGetPgxTraceLogLevel(t *testing.T) {
	assert.Equal(t, tracelog.LogLevelDebug, GetPgxTraceLogLevel(zerolog.DebugLevel))
	assert.Equal(t, tracelog.LogLevelError, GetPgxTraceLogLevel(zerolog.ErrorLevel))
	assert.Equal(t, tracelog.LogLevelNone, GetPgxTraceLogLevel(zerolog.Disabled))
}
