package middleware

import (
	"net/http"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/deppfellow/portfolio-backend/internal/errs"
	"github.com/deppfellow/portfolio-backend/internal/server"
	"github.com/labstack/echo/v4"
)

// AuthMiddleware guards the contact admin endpoints with a Clerk session
// token sent as a bearer Authorization header.
type AuthMiddleware struct {
	server *server.Server
}

func NewAuthMiddleware(s *server.Server) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
	}
}

func (auth *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Browsers send preflight requests without credentials.
		if c.Request().Method == http.MethodOptions {
			return next(c)
		}

		var verified bool

		handler := clerkhttp.WithHeaderAuthorization(
			clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})),
		)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			verified = true
			c.SetRequest(r)
		}))
		handler.ServeHTTP(c.Response(), c.Request())

		start := time.Now()
		claims, ok := clerk.SessionClaimsFromContext(c.Request().Context())
		if !verified || !ok {
			GetLogger(c).Warn().
				Str("function", "RequireAuth").
				Dur("duration", time.Since(start)).
				Msg("could not get session claims from context")

			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(UserRoleKey, claims.ActiveOrganizationRole)
		c.Set("permissions", claims.Claims.ActiveOrganizationPermissions)

		userLogger := GetLogger(c).With().Str("user_id", claims.Subject).Logger()
		c.Set(LoggerKey, &userLogger)

		userLogger.Info().
			Str("function", "RequireAuth").
			Dur("duration", time.Since(start)).
			Msg("user authenticated successfully")

		return next(c)
	}
}
