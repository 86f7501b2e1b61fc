package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/policy"
)

// RegisterArtist registers the scheduling endpoints. They require a
// valid JWT and the artist or owner role; ownership of a specific event
// is checked inside the handlers.
func RegisterArtist(e *echo.Echo, h Handlers, m Middleware) {
	g := e.Group(
		"/v1",
		m.Auth,
		middleware.RequireRole(policy.RoleArtist, policy.RoleOwner),
	)

	g.POST("/events", h.Events.Create)
	g.PUT("/events/:id", h.Events.Update)
	g.GET("/events/:id/reservations", h.Reservations.ListByEvent)

	// seeded data, safe to cache
	g.GET("/genres", h.Genres.List, m.Cache)
	g.GET("/venues/:id/timeslots", h.Venues.Timeslots)
}
