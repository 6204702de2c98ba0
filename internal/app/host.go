package app

import (
	"net/http"

	"github.com/deppfellow/portfolio-backend/internal/middleware"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
)

// AdminPaths are the contact endpoints guarded by the admin session when
// authentication is configured.
var AdminPaths = []string{
	"/api/contact/messages",
	"/api/contact/messages/:id",
	"/api/contact/stats",
	"/api/contact/test",
}

// NewHost mounts app behind the host middleware. /metrics is served by
// echo directly; every other path goes to the pipeline.
func NewHost(s *server.Server, app http.Handler, mw *middleware.Middlewares, requireAuth bool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	e.Pre(middleware.CanonicalPath())

	e.Use(
		middleware.RequestID(),
		mw.Tracing.NewRelicMiddleware(),
		mw.Tracing.EnhanceTracing(),
		mw.ContextEnhancer.EnhanceContext(),
		mw.Global.RequestLogger(),
		mw.Global.Recover(),
	)

	e.GET("/metrics", echo.WrapHandler(s.Metrics.Handler()))

	mount := echo.WrapHandler(app)
	if requireAuth {
		for _, path := range AdminPaths {
			e.Any(path, mount, mw.Auth.RequireAuth)
		}
	}
	e.Any("/*", mount)

	return e
}
