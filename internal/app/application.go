// Package app assembles the request pipeline and runs it.
//
// App is the application driver: for every call it builds one
// envelope.Request, runs the middleware chain and, when no middleware
// answered, dispatches to the router. Faults from either phase, panics
// included, are translated by the chain's error handler. The echo host in
// host.go mounts App behind the request id, logging, tracing and auth
// middleware.
package app

import (
	"net/http"
	"time"

	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/deppfellow/portfolio-backend/internal/lib/metrics"
	"github.com/deppfellow/portfolio-backend/internal/logger"
	"github.com/deppfellow/portfolio-backend/internal/middleware"
	"github.com/deppfellow/portfolio-backend/internal/ratelimit"
	"github.com/deppfellow/portfolio-backend/internal/router"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const unmatchedRoute = "unmatched"

// App owns the chain, the router and the rate-limit store.
type App struct {
	chain   *middleware.Chain
	router  *router.Router
	store   ratelimit.Store
	limiter *ratelimit.Limiter

	logger       *zerolog.Logger
	metrics      *metrics.Metrics
	maxBodyBytes int64
}

// Router returns the route table.
func (a *App) Router() *router.Router { return a.router }

// Chain returns the middleware chain.
func (a *App) Chain() *middleware.Chain { return a.chain }

// Limiter returns the rate limiter.
func (a *App) Limiter() *ratelimit.Limiter { return a.limiter }

// Close releases the rate-limit store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	out := envelope.NewWriter(w)

	req, resp := a.Run(out, r)

	if err := envelope.Send(out, resp); err != nil {
		logger.FromContext(req.Context(), a.logger).Error().
			Err(err).
			Str("method", req.Method()).
			Str("path", req.Path()).
			Msg("failed to send response")
	}

	route := unmatchedRoute
	if rt, _, ok := a.router.Lookup(req.Method(), req.Path()); ok {
		route = rt.Pattern
	}
	status := out.Status()
	if status == 0 {
		status = resp.Status
	}
	a.metrics.ObserveRequest(req.Method(), route, status, time.Since(start))
}

// Run handles r up to, but not including, writing the response. It always
// returns the request it built and a response to send.
func (a *App) Run(w middleware.HeaderWriter, r *http.Request) (req *envelope.Request, resp *envelope.Response) {
	req, err := envelope.FromHTTP(r, envelope.Options{MaxBodyBytes: a.maxBodyBytes})
	if err != nil {
		req = envelope.NewRequest(r.Method, r.URL.Path)
		return req, a.chain.Translate(req, err)
	}

	defer func() {
		if rec := recover(); rec != nil {
			resp = a.chain.Translate(req, panicError(rec))
		}
	}()

	resp, err = a.chain.Run(w, req)
	if err == nil && resp == nil {
		resp, err = a.router.Dispatch(req.Method(), req.Path(), req)
	}
	if err != nil {
		return req, a.chain.Translate(req, err)
	}
	return req, resp
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return errors.WithStack(err)
	}
	return errors.Errorf("panic: %v", rec)
}
