// Package router registers the HTTP routes of the API on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gsr-share/internal/handler"
	"github.com/iliyamo/gsr-share/internal/middleware"
	"github.com/iliyamo/gsr-share/internal/model"
)

// Options carries the shared per-route middleware.  RateLimit is attached
// after the JWT middleware of each route so its key sees the caller's
// identity.  Nil entries are skipped.
type Options struct {
	JWTSecret      string
	RateLimit      echo.MiddlewareFunc
	RoomCache      echo.MiddlewareFunc
	ShareCodeCache echo.MiddlewareFunc // must share keys with the handler's purger
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// protected profile endpoint /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, o Options) {
	g := e.Group("/v1/auth", o.limited()...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)              // rotates the refresh token
	g.POST("/refresh-access", a.RefreshAccess) // keeps the refresh token
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, o.signedIn()...)
}

// RegisterPublic registers the cached room catalogue.
func RegisterPublic(e *echo.Echo, r *handler.RoomHandler, o Options) {
	mw := o.limited(o.RoomCache)
	e.GET("/v1/gsr/rooms", r.ListRooms, mw...)
	e.GET("/v1/gsr/rooms/:id", r.GetRoom, mw...)
}

// RegisterBookings registers booking and reservation endpoints for signed-in
// students and staff.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, o Options) {
	mw := o.signedIn()
	e.POST("/v1/bookings", b.CreateBooking, mw...)
	e.GET("/v1/bookings", b.ListMine, mw...)
	e.DELETE("/v1/bookings/:id", b.Cancel, mw...)
	e.POST("/v1/reservations", b.CreateReservation, mw...)
}

// RegisterShareCodes registers the share code endpoints.  Retrieval is
// public (a token is honoured when present) and cached; create and delete
// need a signed-in user; the full listing is staff only.
func RegisterShareCodes(e *echo.Echo, s *handler.ShareCodeHandler, o Options) {
	mw := o.signedIn()
	retrieve := append([]echo.MiddlewareFunc{middleware.OptionalJWT(o.JWTSecret)}, o.limited(o.ShareCodeCache)...)
	e.GET(handler.ShareCodePath+":code", s.Retrieve, retrieve...)
	e.POST("/v1/sharecodes", s.Create, mw...)
	e.DELETE(handler.ShareCodePath+":code", s.Delete, mw...)

	e.GET("/v1/admin/sharecodes", s.ListAll, o.signedIn(model.RoleStaff)...)
}

// signedIn authenticates, rate limits per user and checks the role.  With
// no roles given students and staff are admitted.
func (o Options) signedIn(roles ...string) []echo.MiddlewareFunc {
	if len(roles) == 0 {
		roles = []string{model.RoleStudent, model.RoleStaff}
	}
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(o.JWTSecret)}
	return append(mw, o.limited(middleware.RequireRole(roles...))...)
}

// limited prefixes rest with the rate limiter, dropping nil entries.
func (o Options) limited(rest ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(rest)+1)
	for _, mw := range append([]echo.MiddlewareFunc{o.RateLimit}, rest...) {
		if mw != nil {
			out = append(out, mw)
		}
	}
	return out
}
