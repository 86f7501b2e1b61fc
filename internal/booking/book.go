package booking

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/policy"
)

// VenueReader reads a venue inside a transaction.
type VenueReader interface {
	GetByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Venue, error)
}

// ReservationStore is the reservation persistence the book needs.
type ReservationStore interface {
	ExistsForUserTx(ctx context.Context, tx *sqlx.Tx, userID, eventID int64) (bool, error)
	SumSeatsTx(ctx context.Context, tx *sqlx.Tx, eventID int64) (int64, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, r *model.Reservation) error
	LockByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Reservation, error)
	DeleteTx(ctx context.Context, tx *sqlx.Tx, id int64) (int64, error)
}

// Book allocates seats against venue capacity. Every reservation write
// for an event first locks the event row, which serializes the
// duplicate check, the capacity sum and the insert per event while
// leaving other events untouched.
type Book struct {
	coord        *Coordinator
	events       EventStore
	venues       VenueReader
	reservations ReservationStore
	log          *zap.Logger
}

// NewBook wires a Book over the given stores.
func NewBook(coord *Coordinator, events EventStore, venues VenueReader, reservations ReservationStore, log *zap.Logger) *Book {
	if log == nil {
		log = zap.NewNop()
	}
	return &Book{coord: coord, events: events, venues: venues, reservations: reservations, log: log}
}

// Reserve books num seats of eventID for userID.
func (b *Book) Reserve(ctx context.Context, userID, eventID, num int64) (*model.Reservation, error) {
	if num <= 0 {
		return nil, fmt.Errorf("%w: number of seats must be positive", ErrInvalidInput)
	}

	var created *model.Reservation
	err := b.coord.Run(ctx, "reserve", func(ctx context.Context, tx *sqlx.Tx) error {
		e, err := b.events.LockByIDTx(ctx, tx, eventID)
		if err != nil {
			return notFound(err)
		}
		venue, err := b.venues.GetByIDTx(ctx, tx, e.VenueID)
		if err != nil {
			return notFound(err)
		}

		exists, err := b.reservations.ExistsForUserTx(ctx, tx, userID, eventID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: user %d already reserved event %d", ErrDuplicate, userID, eventID)
		}

		reserved, err := b.reservations.SumSeatsTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if reserved+num > venue.Capacity {
			return fmt.Errorf("%w: %d of %d seats left", ErrCapacityExceeded, max(venue.Capacity-reserved, 0), venue.Capacity)
		}

		r := &model.Reservation{UserID: userID, EventID: eventID, NumOfResv: num}
		if err := b.reservations.CreateTx(ctx, tx, r); err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("%w: user %d already reserved event %d", ErrDuplicate, userID, eventID)
			}
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.log.Info("reservation created",
		zap.Int64("reservation_id", created.ID),
		zap.Int64("event_id", eventID),
		zap.Int64("user_id", userID),
		zap.Int64("seats", num),
	)
	return created, nil
}

// Cancel deletes a reservation on behalf of requester and returns the
// removed row. The seats become available to the next Reserve call.
func (b *Book) Cancel(ctx context.Context, reservationID int64, requester policy.Principal) (*model.Reservation, error) {
	var cancelled *model.Reservation
	err := b.coord.Run(ctx, "cancel_reservation", func(ctx context.Context, tx *sqlx.Tx) error {
		r, err := b.reservations.LockByIDTx(ctx, tx, reservationID)
		if err != nil {
			return notFound(err)
		}
		if err := policy.Authorize(requester, r.UserID, policy.CancelReservation); err != nil {
			return err
		}
		n, err := b.reservations.DeleteTx(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: reservation %d", ErrNotFound, reservationID)
		}
		cancelled = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.log.Info("reservation cancelled",
		zap.Int64("reservation_id", reservationID),
		zap.Int64("event_id", cancelled.EventID),
		zap.Int64("requester_id", requester.UserID),
	)
	return cancelled, nil
}
