package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/deppfellow/portfolio-backend/internal/config"
	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/logger"
	"github.com/rs/zerolog"
)

// developmentOrigins are the local front-end dev servers.
var developmentOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORSOptions is the cross-origin policy of the pipeline.
type CORSOptions struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int

	// Development rejects every unlisted origin, regardless of
	// AllowUnlistedOrigins.
	Development bool

	// AllowUnlistedOrigins lets origins missing from the allow-list through
	// with a warning instead of a 403.
	AllowUnlistedOrigins bool
}

// CORSOptionsFromConfig derives the policy from the application config. In
// development the local dev server origins are allowed too.
func CORSOptionsFromConfig(cfg *config.Config) CORSOptions {
	origins := append([]string(nil), cfg.CORS.AllowedOrigins...)
	if cfg.IsDevelopment() {
		origins = append(origins, developmentOrigins...)
	}

	return CORSOptions{
		AllowedOrigins:       origins,
		AllowedMethods:       cfg.CORS.AllowedMethods,
		AllowedHeaders:       cfg.CORS.AllowedHeaders,
		MaxAge:               cfg.CORS.MaxAge,
		Development:          cfg.IsDevelopment(),
		AllowUnlistedOrigins: cfg.CORS.AllowUnlistedOrigins,
	}
}

// CORS enforces the origin allow-list and answers preflight requests.
type CORS struct {
	opts    CORSOptions
	allowed map[string]struct{}
	methods string
	headers string
	maxAge  string
	logger  *zerolog.Logger
}

// NewCORS builds the CORS middleware. log is used when the request carries
// no logger of its own.
func NewCORS(opts CORSOptions, log *zerolog.Logger) *CORS {
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		if origin = normalizeOrigin(origin); origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return &CORS{
		opts:    opts,
		allowed: allowed,
		methods: strings.Join(opts.AllowedMethods, ", "),
		headers: strings.Join(opts.AllowedHeaders, ", "),
		maxAge:  strconv.Itoa(opts.MaxAge),
		logger:  log,
	}
}

func normalizeOrigin(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}

// IsAllowed reports whether origin is on the allow-list.
func (c *CORS) IsAllowed(origin string) bool {
	_, ok := c.allowed[normalizeOrigin(origin)]
	return ok
}

func (c *CORS) Handle(w HeaderWriter, req *envelope.Request) (*envelope.Response, error) {
	origin := normalizeOrigin(req.Header("Origin"))

	if origin == "" {
		w.SetHeader("Access-Control-Allow-Methods", c.methods)
		w.SetHeader("Access-Control-Allow-Headers", c.headers)
		w.SetHeader("Access-Control-Max-Age", c.maxAge)
	} else {
		if !c.IsAllowed(origin) {
			log := logger.FromContext(req.Context(), c.logger)

			if c.opts.Development || !c.opts.AllowUnlistedOrigins {
				log.Warn().
					Str("origin", origin).
					Str("ip", req.ClientIP()).
					Msg("CORS: origin blocked")

				forbidden := errs.NewForbiddenOriginError(origin)
				return envelope.NewResponse(forbidden.Status, map[string]any{
					"error":  forbidden.Message,
					"origin": origin,
				}), nil
			}

			log.Warn().
				Str("origin", origin).
				Str("ip", req.ClientIP()).
				Msg("CORS: allowing unlisted origin")
		}

		w.SetHeader("Access-Control-Allow-Origin", origin)
		w.SetHeader("Access-Control-Allow-Credentials", "true")
		w.SetHeader("Access-Control-Allow-Methods", c.methods)
		w.SetHeader("Access-Control-Allow-Headers", c.headers)
		w.SetHeader("Access-Control-Max-Age", c.maxAge)
		w.SetHeader("Vary", "Origin")
	}

	if req.Method() == http.MethodOptions {
		return envelope.NewResponse(http.StatusOK, map[string]any{
			"message":         "CORS preflight successful",
			"allowed_methods": c.opts.AllowedMethods,
			"allowed_headers": c.opts.AllowedHeaders,
		}), nil
	}

	return nil, nil
}
