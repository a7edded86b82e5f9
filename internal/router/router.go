package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/handler"
	"github.com/iliyamo/flight-seat-reservation/internal/middleware"
	"github.com/iliyamo/flight-seat-reservation/internal/utils"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
// /healthz only reports that the process is up; /readyz also pings the
// database.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterBooking registers the seat booking flow under /booking.  The
// read-only seat map lives under /aircraft and goes through the response
// cache; both groups share the rate limiter.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, cat *handler.CatalogHandler, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/booking", limit)
	g.GET("/check/:seatId/:flight/:seatClass", b.CheckSeat)
	g.GET("/reserved-seats/:flightId", b.ReservedSeats)
	g.POST("/success", b.Success)
	g.POST("/decline", b.Decline)
	g.POST("/extras", b.Extras)

	e.GET("/aircraft/:id/layout", cat.Layout, limit, cache)
}

// RegisterWebhook exposes the payment gateway callback.  It is neither rate
// limited nor authenticated: requests are verified by signature.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/api/webhook", w.Handle)
}

// RegisterAdmin registers operator endpoints under /v1/admin.  All routes
// require a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
	g.GET("/holds/:id", a.GetHold)
	g.POST("/holds/reap", a.Reap)
}
