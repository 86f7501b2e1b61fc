// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/handler"
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
	Events       *handler.EventHandler
	Reservations *handler.ReservationHandler
	Venues       *handler.VenueHandler
	Genres       *handler.GenreHandler
}

// Middleware bundles the shared middleware built in main. Auth resolves
// the caller, Limit throttles reservation writes and Cache fronts the
// seeded listings.
type Middleware struct {
	Auth  echo.MiddlewareFunc
	Limit echo.MiddlewareFunc
	Cache echo.MiddlewareFunc
}

// RegisterRoutes registers routes that do not require authentication.
// /healthz can be used by load balancers to verify that the service and
// its database are reachable.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers the guest browse endpoints.
func RegisterPublic(e *echo.Echo, h Handlers, m Middleware) {
	e.GET("/v1/events", h.Events.List)
	e.GET("/v1/events/:id", h.Events.Get)
	e.GET("/v1/venues", h.Venues.List, m.Cache)
}

// RegisterAll registers every route group. Nil middleware is replaced by
// a pass-through.
func RegisterAll(e *echo.Echo, db handler.Pinger, h Handlers, m Middleware) {
	m = m.withDefaults()
	RegisterRoutes(e, db)
	RegisterPublic(e, h, m)
	RegisterArtist(e, h, m)
	RegisterAudience(e, h, m)
}

func (m Middleware) withDefaults() Middleware {
	pass := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if m.Auth == nil {
		m.Auth = pass
	}
	if m.Limit == nil {
		m.Limit = pass
	}
	if m.Cache == nil {
		m.Cache = pass
	}
	return m
}
