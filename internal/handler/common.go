// Package handler contains the HTTP handlers of the booking API. Handlers
// resolve the caller from the JWT middleware, ask policy.Authorize
// whether the call is allowed and delegate to the booking engine or the
// read repositories.
package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/middleware"
	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/policy"
	"github.com/iliyamo/event-booking/internal/queue"
	"github.com/iliyamo/event-booking/internal/service"
)

// EventScheduler creates and reschedules events.
type EventScheduler interface {
	CreateEvent(ctx context.Context, artistID int64, f booking.EventFields) (*model.Event, error)
	UpdateEvent(ctx context.Context, eventID int64, f booking.EventFields) (*model.Event, error)
}

// ReservationBook books and cancels seats.
type ReservationBook interface {
	Reserve(ctx context.Context, userID, eventID, num int64) (*model.Reservation, error)
	Cancel(ctx context.Context, reservationID int64, requester policy.Principal) (*model.Reservation, error)
}

// EventReader serves the event read models.
type EventReader interface {
	GetByID(ctx context.Context, id int64) (*model.Event, error)
	GetDetail(ctx context.Context, id int64) (*model.EventDetail, error)
	ListUpcoming(ctx context.Context, artistID int64, now time.Time, limit, offset int) ([]model.EventDetail, error)
}

// ReservationReader serves the reservation read models.
type ReservationReader interface {
	GetDetail(ctx context.Context, id int64) (*model.ReservationDetail, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.ReservationDetail, error)
	ListByEvent(ctx context.Context, eventID int64, limit, offset int) ([]model.ReservationDetail, error)
}

// VenueReader lists venues.
type VenueReader interface {
	GetByID(ctx context.Context, id int64) (*model.Venue, error)
	List(ctx context.Context, limit, offset int) ([]model.Venue, error)
}

// TimeslotReader lists free timeslots.
type TimeslotReader interface {
	ListAvailable(ctx context.Context, venueID int64, from, to time.Time) ([]model.Timeslot, error)
}

// GenreReader lists genres.
type GenreReader interface {
	List(ctx context.Context) ([]model.Genre, error)
}

var errUnauthenticated = errors.New("unauthenticated")

// caller returns the principal attached by middleware.JWTAuth.
func caller(c echo.Context) (policy.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return policy.Principal{}, errUnauthenticated
	}
	return p, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// limitOffset reads ?limit= and ?offset=. Missing values take the
// defaults; negative or non-integer values are rejected.
func limitOffset(c echo.Context, defLimit int) (int, int, error) {
	limit, offset := defLimit, 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = n
	}
	if s := c.QueryParam("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = n
	}
	return limit, offset, nil
}

// notifier publishes activities after a successful commit. Publishing is
// best effort: failures are logged and never change the response.
type notifier struct {
	pub service.ActivityPublisher
	log *zap.Logger
}

func (n notifier) notify(ctx context.Context, a queue.Activity) {
	if n.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now().UTC()
	}
	if err := n.pub.Publish(ctx, a); err != nil {
		n.log.Warn("publish activity failed", zap.String("kind", string(a.Kind)), zap.Int64("event_id", a.EventID), zap.Error(err))
	}
}
