package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/repository"
)

// statusFor maps an engine or repository error onto an HTTP status and a
// client facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, booking.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, booking.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrEventNotFound):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, repository.ErrVenueNotFound):
		return http.StatusNotFound, "venue not found"
	case errors.Is(err, repository.ErrReservationNotFound):
		return http.StatusNotFound, "reservation not found"
	case errors.Is(err, booking.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, booking.ErrConflict):
		return http.StatusConflict, "Selected timeslots are already reserved."
	case errors.Is(err, booking.ErrDuplicate):
		return http.StatusConflict, "Reservation already exists."
	case errors.Is(err, booking.ErrCapacityExceeded):
		return http.StatusConflict, "Tickets are all gone."
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "operation timed out"
	case booking.IsRetryable(err):
		return http.StatusServiceUnavailable, "service busy, try again"
	}
	return http.StatusInternalServerError, "internal server error"
}

// respondError writes the JSON error body for err. Server side failures
// are logged with the request id.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.String("route", c.Path()),
			zap.Error(err),
		)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
