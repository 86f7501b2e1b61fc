package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/policy"
)

// RegisterAudience registers the reservation endpoints. Owners may read
// and cancel any reservation, so both roles pass the group check; the
// handlers narrow access further through policy.Authorize.
func RegisterAudience(e *echo.Echo, h Handlers, m Middleware) {
	g := e.Group(
		"/v1",
		m.Auth,
		middleware.RequireRole(policy.RoleAudience, policy.RoleOwner),
	)

	g.POST("/events/:id/reservations", h.Reservations.Reserve, m.Limit)
	g.GET("/reservations/:id", h.Reservations.Get)
	g.DELETE("/reservations/:id", h.Reservations.Cancel, m.Limit)
	g.GET("/users/:id/reservations", h.Reservations.ListByUser)
}
