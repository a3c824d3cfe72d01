package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gsr-share/internal/logger"
	"github.com/iliyamo/gsr-share/internal/utils"
)

// Context keys set by JWTAuth and OptionalJWT.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the subject and role in the Echo context (`user_id` as uint64,
// `role` as string).  Requests without a valid token get 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}

// OptionalJWT authenticates the caller when a Bearer token is present and
// lets anonymous requests through untouched.  A token that is present but
// invalid is rejected with 401 rather than silently downgraded.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(c)
			}
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

func setIdentity(c echo.Context, claims utils.Claims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxRole, claims.Role)
	req := c.Request()
	ctx := context.WithValue(req.Context(), logger.UserIDKey, claims.UserID)
	c.SetRequest(req.WithContext(ctx))
}
