package middleware

import (
	"github.com/deppfellow/portfolio-backend/internal/envelope"
	"github.com/labstack/echo/v4"
)

// CanonicalPath rewrites the request path to the normalized, decoded form
// the pipeline routes on. Registered with echo's Pre it runs before echo
// routing, so a guarded host route cannot be skipped with an extra trailing
// slash or a percent-encoded segment.
func CanonicalPath() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := c.Request().URL
			u.Path = envelope.NormalizePath(u.Path)
			u.RawPath = ""
			return next(c)
		}
	}
}
