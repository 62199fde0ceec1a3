package auth

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/retail_market/internal/logging"
	"github.com/Skotchmaster/retail_market/internal/tokens"
)

const (
	ctxRetailerID = "retailerID"
	ctxUsername   = "username"
)

const (
	msgTokenRequired = "Access token required"
	msgTokenInvalid  = "Invalid or expired token"
	msgAccessDenied  = "Access denied"
)

// RequireAuth authenticates the bearer token. A missing token is 401, a token
// that does not verify is 403.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context()).With("middleware", "require_auth")

			raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if raw == "" {
				l.Warn("auth_error", "status", http.StatusUnauthorized, "reason", "missing token")
				return echo.NewHTTPError(http.StatusUnauthorized, msgTokenRequired)
			}

			claims, err := tokens.Parse(secret, raw)
			if err != nil {
				l.Warn("auth_error", "status", http.StatusForbidden, "reason", "invalid token", "error", err)
				return echo.NewHTTPError(http.StatusForbidden, msgTokenInvalid)
			}

			c.Set(ctxRetailerID, claims.RetailerID)
			c.Set(ctxUsername, claims.Username)
			return next(c)
		}
	}
}

// RequireOwner compares the retailer id in the named path param with the
// authenticated caller. It must run after RequireAuth.
func RequireOwner(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context()).With("middleware", "require_owner")

			target, err := strconv.ParseUint(c.Param(param), 10, 64)
			if err != nil {
				l.Warn("owner_error", "status", http.StatusBadRequest, "reason", "bad retailer id", "error", err)
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid retailer id")
			}

			caller, ok := RetailerID(c)
			if !ok || uint(target) != caller {
				l.Warn("owner_error", "status", http.StatusForbidden, "reason", "retailer mismatch", "caller", caller, "target", target)
				return echo.NewHTTPError(http.StatusForbidden, msgAccessDenied)
			}
			return next(c)
		}
	}
}

func RetailerID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxRetailerID).(uint)
	return id, ok && id != 0
}

func Username(c echo.Context) string {
	s, _ := c.Get(ctxUsername).(string)
	return s
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
