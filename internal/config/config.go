// Package config loads the application configuration from the environment.
//
// Configuration is read once at startup: defaults first, then variables
// prefixed with PORTFOLIO_ (optionally from a `.env` file), then validated.
// The resulting *Config is passed explicitly to every component that needs
// it and never re-read.
//
// Nesting uses a double underscore:
//
//	PORTFOLIO_RATE_LIMIT__GENERAL_LIMIT=100 -> rate_limit.general_limit
//	PORTFOLIO_CORS__ALLOWED_ORIGINS=https://a.example,https://b.example
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Loads `.env` into the process environment before anything reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix is the prefix of every configuration variable.
const EnvPrefix = "PORTFOLIO_"

const (
	EnvDevelopment = "development"
	EnvLocal       = "local"
	EnvTest        = "test"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config is the root configuration object.
//
// Observability is optional; defaults are injected when it is absent.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	CORS          CORSConfig           `koanf:"cors"`
	RateLimit     RateLimitConfig      `koanf:"rate_limit" validate:"required"`
	Database      DatabaseConfig       `koanf:"database"`
	Redis         RedisConfig          `koanf:"redis"`
	Auth          AuthConfig           `koanf:"auth"`
	Email         EmailConfig          `koanf:"email"`
	Jobs          JobsConfig           `koanf:"jobs"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds the runtime environment name and the release version.
type Primary struct {
	Env     string `koanf:"env" validate:"required,oneof=development local test staging production"`
	Version string `koanf:"version" validate:"required"`
}

// ServerConfig groups settings for the HTTP server. Timeouts are seconds.
type ServerConfig struct {
	Port         string `koanf:"port" validate:"required"`
	ReadTimeout  int    `koanf:"read_timeout" validate:"min=1"`
	WriteTimeout int    `koanf:"write_timeout" validate:"min=1"`
	IdleTimeout  int    `koanf:"idle_timeout" validate:"min=1"`
	MaxBodyBytes int64  `koanf:"max_body_bytes" validate:"min=1"`
}

// CORSConfig is the cross-origin policy.
//
// AllowUnlistedOrigins lets origins missing from the allow-list through
// (with a warning log) outside the development environment. In development
// unlisted origins are always rejected.
type CORSConfig struct {
	AllowedOrigins       []string `koanf:"allowed_origins"`
	AllowedMethods       []string `koanf:"allowed_methods" validate:"required,min=1"`
	AllowedHeaders       []string `koanf:"allowed_headers" validate:"required,min=1"`
	MaxAge               int      `koanf:"max_age" validate:"min=0"`
	AllowUnlistedOrigins bool     `koanf:"allow_unlisted_origins"`
}

// RateLimitConfig holds the sliding-window budgets. Windows are seconds.
type RateLimitConfig struct {
	GeneralLimit  int    `koanf:"general_limit" validate:"min=1"`
	GeneralWindow int    `koanf:"general_window" validate:"min=1"`
	ContactLimit  int    `koanf:"contact_limit" validate:"min=1"`
	ContactWindow int    `koanf:"contact_window" validate:"min=1"`
	ContactPrefix string `koanf:"contact_prefix" validate:"required,startswith=/"`
	Store         string `koanf:"store" validate:"required,oneof=file redis memory"`
	FilePath      string `koanf:"file_path" validate:"required_if=Store file"`
	RedisPrefix   string `koanf:"redis_prefix"`
}

// GeneralWindowDuration returns the general window as a duration.
func (c RateLimitConfig) GeneralWindowDuration() time.Duration {
	return time.Duration(c.GeneralWindow) * time.Second
}

// ContactWindowDuration returns the contact window as a duration.
func (c RateLimitConfig) ContactWindowDuration() time.Duration {
	return time.Duration(c.ContactWindow) * time.Second
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
// Lifetimes are seconds.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"min=0"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"min=0"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// RedisConfig contains Redis connection details. Address is "host:port".
type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// AuthConfig stores the Clerk secret key. Leaving it empty disables the
// guard on the admin contact endpoints.
type AuthConfig struct {
	SecretKey string `koanf:"secret_key"`
}

// JobsConfig controls the background worker.
type JobsConfig struct {
	Enabled     bool `koanf:"enabled"`
	Concurrency int  `koanf:"concurrency" validate:"min=1"`
}

// IsProduction reports whether the application runs in production.
func (c *Config) IsProduction() bool {
	return c.Primary.Env == EnvProduction
}

// IsDevelopment reports whether the application runs in development.
func (c *Config) IsDevelopment() bool {
	return c.Primary.Env == EnvDevelopment
}

// listKeys are split on commas when read from the environment.
var listKeys = map[string]bool{
	"cors.allowed_origins":                true,
	"cors.allowed_methods":                true,
	"cors.allowed_headers":                true,
	"observability.health_checks.checks": true,
}

// DefaultConfig returns the configuration used before the environment is
// applied.
func DefaultConfig() *Config {
	return &Config{
		Primary: Primary{
			Env:     EnvDevelopment,
			Version: "1.0.0",
		},
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  60,
			MaxBodyBytes: 10 << 20,
		},
		CORS: CORSConfig{
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
			MaxAge:         86400,
		},
		RateLimit: RateLimitConfig{
			GeneralLimit:  100,
			GeneralWindow: 900,
			ContactLimit:  5,
			ContactWindow: 900,
			ContactPrefix: "/api/contact",
			Store:         "file",
			FilePath:      "storage/rate_limits.json",
			RedisPrefix:   "portfolio:ratelimit:",
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 3600,
			ConnMaxIdleTime: 300,
		},
		Email: DefaultEmailConfig(),
		Jobs: JobsConfig{
			Concurrency: 10,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// LoadConfig reads the environment on top of DefaultConfig and validates
// the result.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		key = strings.ReplaceAll(key, "__", ".")

		if listKeys[key] {
			return key, splitList(value)
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not load env variables")
	}

	mainConfig := DefaultConfig()
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal main config")
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}
	mainConfig.Observability.ServiceName = "portfolio-api"
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// Validate runs the struct tag rules and the cross-field rules.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "config validation failed")
	}

	if c.RateLimit.Store == "redis" && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when rate_limit.store is redis")
	}
	if c.Jobs.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required when jobs are enabled")
	}
	if err := c.Email.Validate(); err != nil {
		return err
	}

	if c.Observability != nil {
		if err := c.Observability.Validate(); err != nil {
			return errors.Wrap(err, "invalid observability config")
		}
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
