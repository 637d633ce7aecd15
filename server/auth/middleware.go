package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const identityContextKey = "identity"

// Middleware verifies the session token on every request and stores the
// resulting identity in the echo context. Browsers cannot set headers on
// websocket upgrades, so a `token` query parameter is accepted as fallback.
func Middleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := bearerToken(c.Request())
			if tokenString == "" {
				tokenString = c.QueryParam("token")
			}
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
			}

			identity, err := VerifyToken(secret, tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
			}

			c.Set(identityContextKey, identity)
			return next(c)
		}
	}
}

// RequireRole rejects requests whose identity does not hold one of the given
// roles. Authorization happens here, before any event is produced; rooms are
// fan-out groups, not authorization boundaries.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := FromContext(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
			}
			for _, role := range roles {
				if identity.Role == role {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

// FromContext returns the identity stored by Middleware.
func FromContext(c echo.Context) (Identity, bool) {
	identity, ok := c.Get(identityContextKey).(Identity)
	return identity, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
