package app

import (
	"strings"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/middleware"
	"github.com/deppfellow/portfolio-backend/internal/ratelimit"
	"github.com/deppfellow/portfolio-backend/internal/router"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/pkg/errors"
)

// RegisterFunc adds the routes and controllers of the application.
type RegisterFunc func(r *router.Router, registry *router.Registry) error

type options struct {
	store ratelimit.Store
	clock func() time.Time
}

type Option func(*options)

// WithStore uses store instead of the one selected by the config.
func WithStore(store ratelimit.Store) Option {
	return func(o *options) { o.store = store }
}

// WithClock replaces the rate limiter clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New builds the application: the rate-limit store, the limiter, the chain
// (CORS, security, rate limit, error handler, in that order) and the router
// filled by register.
func New(s *server.Server, register RegisterFunc, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := s.Config
	limiterCfg := LimiterConfig(cfg)

	store := o.store
	if store == nil {
		var err error
		store, err = NewStore(s, limiterCfg)
		if err != nil {
			return nil, err
		}
	}

	var limiterOpts []ratelimit.Option
	if o.clock != nil {
		limiterOpts = append(limiterOpts, ratelimit.WithClock(o.clock))
	}
	limiter := ratelimit.New(store, limiterCfg, limiterOpts...)

	chain := middleware.NewChain(
		middleware.NewCORS(middleware.CORSOptionsFromConfig(cfg), s.Logger),
		middleware.NewSecurity(middleware.MaxContentLength, s.Logger),
		middleware.NewRateLimit(limiter, s.Logger, s.LoggerService, s.Metrics),
		middleware.NewErrorHandler(cfg.IsProduction(), s.Logger, s.Metrics),
	)

	registry := router.NewRegistry()
	r := router.New(registry, router.PreflightConfig{
		AllowHeaders: strings.Join(cfg.CORS.AllowedHeaders, ", "),
		MaxAge:       cfg.CORS.MaxAge,
	})

	if register != nil {
		if err := register(r, registry); err != nil {
			store.Close()
			return nil, errors.Wrap(err, "failed to register routes")
		}
	}

	return &App{
		chain:        chain,
		router:       r,
		store:        store,
		limiter:      limiter,
		logger:       s.Logger,
		metrics:      s.Metrics,
		maxBodyBytes: cfg.Server.MaxBodyBytes,
	}, nil
}

// LimiterConfig maps the rate limit config block onto the limiter.
func LimiterConfig(cfg *config.Config) ratelimit.Config {
	return ratelimit.Config{
		General: ratelimit.Rule{
			Limit:  cfg.RateLimit.GeneralLimit,
			Window: cfg.RateLimit.GeneralWindowDuration(),
		},
		Contact: ratelimit.Rule{
			Limit:  cfg.RateLimit.ContactLimit,
			Window: cfg.RateLimit.ContactWindowDuration(),
		},
		ContactPrefix: cfg.RateLimit.ContactPrefix,
	}
}

// NewStore opens the configured rate-limit store. The redis store reuses
// the server's client.
func NewStore(s *server.Server, limiterCfg ratelimit.Config) (ratelimit.Store, error) {
	retention := limiterCfg.General.Window
	if limiterCfg.Contact.Window > retention {
		retention = limiterCfg.Contact.Window
	}

	switch s.Config.RateLimit.Store {
	case "memory":
		return ratelimit.NewMemoryStore(retention), nil
	case "redis":
		if s.Redis == nil {
			return nil, errors.New("rate limit store redis requires a redis address")
		}
		return ratelimit.NewRedisStore(s.Redis, ratelimit.RedisStoreOptions{
			Prefix:    s.Config.RateLimit.RedisPrefix,
			Retention: retention,
		}), nil
	case "file", "":
		store, err := ratelimit.NewFileStore(s.Config.RateLimit.FilePath, retention)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open rate limit file store")
		}
		return store, nil
	default:
		return nil, errors.Errorf("unknown rate limit store %q", s.Config.RateLimit.Store)
	}
}
