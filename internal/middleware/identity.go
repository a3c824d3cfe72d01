package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gsr-share/internal/access"
)

// UserID returns the authenticated user id stored by JWTAuth or
// OptionalJWT.  ok is false for anonymous requests.
func UserID(c echo.Context) (uint64, bool) {
	switch v := c.Get(ctxUserID).(type) {
	case uint64:
		return v, v != 0
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return id, err == nil && id != 0
	default:
		return 0, false
	}
}

// Role returns the role claim of the authenticated user, or "".
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// ActorFrom builds the access-control actor for the request.  Requests
// without a verified token yield the anonymous actor.
func ActorFrom(c echo.Context) access.Actor {
	id, ok := UserID(c)
	if !ok {
		return access.Anonymous()
	}
	return access.User(id, Role(c))
}

// userKey identifies the caller for rate limiting; "anon" when unauthenticated.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
