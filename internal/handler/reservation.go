package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/policy"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/service"
)

const (
	defaultUserReservationLimit  = 5
	defaultEventReservationLimit = 10
)

// ReservationHandler serves the reservation endpoints. Every route needs
// an authenticated caller.
type ReservationHandler struct {
	Book         ReservationBook
	Events       EventReader
	Reservations ReservationReader
	Log          *zap.Logger
	notifier
}

// NewReservationHandler wires a ReservationHandler.
func NewReservationHandler(book ReservationBook, events EventReader, reservations ReservationReader, pub service.ActivityPublisher, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		Book:         book,
		Events:       events,
		Reservations: reservations,
		Log:          log,
		notifier:     notifier{pub: pub, log: log},
	}
}

type reserveRequest struct {
	NumOfResv int64 `json:"num_of_resv"`
}

// Reserve handles POST /v1/events/:id/reservations.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := policy.Authorize(p, p.UserID, policy.Reserve); err != nil {
		return respondError(c, h.Log, err)
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req reserveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ctx := c.Request().Context()
	r, err := h.Book.Reserve(ctx, p.UserID, eventID, req.NumOfResv)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.notify(ctx, queue.Activity{
		Kind:          queue.ReservationCreated,
		EventID:       eventID,
		ActorID:       p.UserID,
		ReservationID: r.ID,
		UserID:        r.UserID,
		Seats:         r.NumOfResv,
	})
	return c.JSON(http.StatusCreated, r)
}

// Cancel handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	r, err := h.Book.Cancel(ctx, id, p)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.notify(ctx, queue.Activity{
		Kind:          queue.ReservationCancelled,
		EventID:       r.EventID,
		ActorID:       p.UserID,
		ReservationID: r.ID,
		UserID:        r.UserID,
		Seats:         r.NumOfResv,
	})
	return c.NoContent(http.StatusNoContent)
}

// Get handles GET /v1/reservations/:id.
func (h *ReservationHandler) Get(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	r, err := h.Reservations.GetDetail(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := policy.Authorize(p, r.UserID, policy.ViewReservation); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// ListByUser handles GET /v1/users/:id/reservations.
func (h *ReservationHandler) ListByUser(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := policy.Authorize(p, userID, policy.ListUserReservations); err != nil {
		return respondError(c, h.Log, err)
	}
	limit, offset, err := limitOffset(c, defaultUserReservationLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}

	list, err := h.Reservations.ListByUser(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ListByEvent handles GET /v1/events/:id/reservations. Only the artist
// of the event and owners may see who booked.
func (h *ReservationHandler) ListByEvent(c echo.Context) error {
	p, err := caller(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	eventID, err := pathID(c, "id")
	if err != nil {
		return badRequest(c, err.Error())
	}
	limit, offset, err := limitOffset(c, defaultEventReservationLimit)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Request().Context()
	e, err := h.Events.GetByID(ctx, eventID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := policy.Authorize(p, e.ArtistID, policy.ListEventReservations); err != nil {
		return respondError(c, h.Log, err)
	}

	list, err := h.Reservations.ListByEvent(ctx, eventID, limit, offset)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}
