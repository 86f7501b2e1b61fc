package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/policy"
)

const defaultVenueLimit = 5

// VenueHandler lists venues and their free timeslots.
type VenueHandler struct {
	Venues VenueReader
	Slots  TimeslotReader
	Log    *zap.Logger
	Now    func() time.Time
}

// NewVenueHandler wires a VenueHandler.
func NewVenueHandler(venues VenueReader, slots TimeslotReader, log *zap.Logger) *VenueHandler {
	return &VenueHandler{Venues: venues, Slots: slots, Log: log, Now: time.Now}
}

// List handles GET /v1/venues.
func (h *VenueHandler) List(c echo.Context) error {
	limit, offset, err := limitOffset(c, defaultVenueLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}
	venues, err := h.Venues.List(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, venues)
}

// Timeslots handles GET /v1/venues/:id/timeslots?from=&to=. Bounds accept
// RFC 3339 timestamps or plain dates; a date given as "to" covers the
// whole day. Without bounds the window runs from now to the end of the
// current month.
func (h *VenueHandler) Timeslots(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := policy.Authorize(p, p.UserID, policy.ListTimeslots); err != nil {
		return respondError(c, h.Log, err)
	}
	venueID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	now := h.Now().UTC()
	from, to := now, endOfMonth(now)
	if s := c.QueryParam("from"); s != "" {
		if from, err = parseBound(s, false); err != nil {
			return badRequest(c, "invalid from")
		}
	}
	if s := c.QueryParam("to"); s != "" {
		if to, err = parseBound(s, true); err != nil {
			return badRequest(c, "invalid to")
		}
	}
	if to.Before(from) {
		return badRequest(c, "to must not be before from")
	}

	ctx := c.Request().Context()
	if _, err := h.Venues.GetByID(ctx, venueID); err != nil {
		return respondError(c, h.Log, err)
	}
	slots, err := h.Slots.ListAvailable(ctx, venueID, from, to)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, slots)
}

var errBadBound = errors.New("bad time bound")

func parseBound(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, errBadBound
	}
	if upper {
		return d.AddDate(0, 0, 1).Add(-time.Second), nil
	}
	return d, nil
}

// endOfMonth returns the last second of t's month.
func endOfMonth(t time.Time) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, 0).Add(-time.Second)
}
