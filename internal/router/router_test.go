package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/handler"
	"github.com/iliyamo/event-booking/internal/middleware"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

func newTestEcho() *echo.Echo {
	e := echo.New()
	log := zap.NewNop()
	h := Handlers{
		Events:       handler.NewEventHandler(nil, nil, nil, log),
		Reservations: handler.NewReservationHandler(nil, nil, nil, nil, log),
		Venues:       handler.NewVenueHandler(nil, nil, log),
		Genres:       handler.NewGenreHandler(nil, log),
	}
	RegisterAll(e, okPinger{}, h, Middleware{Auth: middleware.JWTAuth("secret", nil, log)})
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newTestEcho()

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /v1/events",
		"GET /v1/events/:id",
		"POST /v1/events",
		"PUT /v1/events/:id",
		"GET /v1/events/:id/reservations",
		"POST /v1/events/:id/reservations",
		"GET /v1/users/:id/reservations",
		"GET /v1/reservations/:id",
		"DELETE /v1/reservations/:id",
		"GET /v1/venues",
		"GET /v1/venues/:id/timeslots",
		"GET /v1/genres",
	} {
		assert.True(t, got[want], want)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newTestEcho()

	for _, tt := range []struct{ method, path string }{
		{http.MethodPost, "/v1/events"},
		{http.MethodPut, "/v1/events/1"},
		{http.MethodPost, "/v1/events/1/reservations"},
		{http.MethodDelete, "/v1/reservations/1"},
		{http.MethodGet, "/v1/genres"},
	} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tt.method+" "+tt.path)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEcho()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
