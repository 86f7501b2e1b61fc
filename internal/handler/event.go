package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/policy"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/service"
)

const defaultEventLimit = 12

// EventHandler serves the event endpoints. Listing and detail are
// public; creating and updating need an artist (or owner for updates).
type EventHandler struct {
	Scheduler EventScheduler
	Events    EventReader
	Log       *zap.Logger
	Now       func() time.Time
	notifier
}

// NewEventHandler wires an EventHandler.
func NewEventHandler(s EventScheduler, events EventReader, pub service.ActivityPublisher, log *zap.Logger) *EventHandler {
	return &EventHandler{
		Scheduler: s,
		Events:    events,
		Log:       log,
		Now:       time.Now,
		notifier:  notifier{pub: pub, log: log},
	}
}

type eventRequest struct {
	Name        string    `json:"name"`
	GenreID     int64     `json:"genre_id"`
	Price       int64     `json:"price"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	TimeslotIDs []int64   `json:"timeslot_ids"`
}

func (r eventRequest) fields() booking.EventFields {
	return booking.EventFields{
		Name:        r.Name,
		GenreID:     r.GenreID,
		Price:       r.Price,
		StartAt:     r.StartAt.UTC(),
		EndAt:       r.EndAt.UTC(),
		TimeslotIDs: r.TimeslotIDs,
	}
}

// List handles GET /v1/events. Only events starting today or later are
// returned; ?user_id= narrows the list to one artist.
func (h *EventHandler) List(c echo.Context) error {
	limit, offset, err := limitOffset(c, defaultEventLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var artistID int64
	if s := c.QueryParam("user_id"); s != "" {
		artistID, err = strconv.ParseInt(s, 10, 64)
		if err != nil || artistID <= 0 {
			return badRequest(c, "invalid user_id")
		}
	}

	events, err := h.Events.ListUpcoming(c.Request().Context(), artistID, h.Now().UTC(), limit, offset)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /v1/events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	d, err := h.Events.GetDetail(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Create handles POST /v1/events.
func (h *EventHandler) Create(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := policy.Authorize(p, p.UserID, policy.CreateEvent); err != nil {
		return respondError(c, h.Log, err)
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx := c.Request().Context()
	e, err := h.Scheduler.CreateEvent(ctx, p.UserID, req.fields())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.notify(ctx, queue.Activity{
		Kind:        queue.EventScheduled,
		EventID:     e.ID,
		ActorID:     p.UserID,
		VenueID:     e.VenueID,
		TimeslotIDs: req.TimeslotIDs,
	})
	return c.JSON(http.StatusCreated, e)
}

// Update handles PUT /v1/events/:id. The whole event is replaced,
// including its timeslots.
func (h *EventHandler) Update(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	current, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := policy.Authorize(p, current.ArtistID, policy.UpdateEvent); err != nil {
		return respondError(c, h.Log, err)
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	e, err := h.Scheduler.UpdateEvent(ctx, id, req.fields())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.notify(ctx, queue.Activity{
		Kind:        queue.EventRescheduled,
		EventID:     e.ID,
		ActorID:     p.UserID,
		VenueID:     e.VenueID,
		TimeslotIDs: req.TimeslotIDs,
	})
	return c.JSON(http.StatusOK, e)
}
