package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/repository"
)

// EventStore is the event persistence the scheduler and book need.
type EventStore interface {
	CreateTx(ctx context.Context, tx *sqlx.Tx, e *model.Event) error
	LockByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Event, error)
	GetByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Event, error)
	UpdateTx(ctx context.Context, tx *sqlx.Tx, e *model.Event) error
}

// GenreChecker confirms a genre exists.
type GenreChecker interface {
	ExistsTx(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error)
}

// SeatCounter sums the seats already sold for an event.
type SeatCounter interface {
	SumSeatsTx(ctx context.Context, tx *sqlx.Tx, eventID int64) (int64, error)
}

// EventFields are the caller supplied attributes of an event.
type EventFields struct {
	Name        string
	GenreID     int64
	Price       int64
	StartAt     time.Time
	EndAt       time.Time
	TimeslotIDs []int64
}

func (f EventFields) check() error {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return fmt.Errorf("%w: event name is required", ErrInvalidInput)
	case f.GenreID <= 0:
		return fmt.Errorf("%w: genre id must be positive", ErrInvalidInput)
	case f.Price <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	return nil
}

// Scheduler creates and reschedules events. Authorization is the
// caller's responsibility.
type Scheduler struct {
	coord     *Coordinator
	validator *Validator
	ledger    *Ledger
	events    EventStore
	genres    GenreChecker
	venues    VenueReader
	seats     SeatCounter
	log       *zap.Logger
}

// NewScheduler wires a Scheduler over the given stores.
func NewScheduler(coord *Coordinator, timeslots TimeslotStore, events EventStore, genres GenreChecker, venues VenueReader, seats SeatCounter, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		coord:     coord,
		validator: NewValidator(timeslots),
		ledger:    NewLedger(timeslots),
		events:    events,
		genres:    genres,
		venues:    venues,
		seats:     seats,
		log:       log,
	}
}

// CreateEvent publishes a new event for artistID and binds the requested
// timeslots to it. The event row and every slot claim commit together
// or not at all.
func (s *Scheduler) CreateEvent(ctx context.Context, artistID int64, f EventFields) (*model.Event, error) {
	if err := f.check(); err != nil {
		return nil, err
	}

	var created *model.Event
	err := s.coord.Run(ctx, "create_event", func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.requireGenre(ctx, tx, f.GenreID); err != nil {
			return err
		}
		group, err := s.validator.Validate(ctx, tx, f.StartAt, f.EndAt, f.TimeslotIDs)
		if err != nil {
			return err
		}

		e := &model.Event{
			ArtistID: artistID,
			VenueID:  group.VenueID,
			GenreID:  f.GenreID,
			Name:     f.Name,
			StartAt:  f.StartAt,
			EndAt:    f.EndAt,
			Price:    f.Price,
		}
		if err := s.events.CreateTx(ctx, tx, e); err != nil {
			return err
		}
		if err := s.ledger.ClaimGroup(ctx, tx, e.ID, group); err != nil {
			return err
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event created",
		zap.Int64("event_id", created.ID),
		zap.Int64("artist_id", artistID),
		zap.Int64("venue_id", created.VenueID),
		zap.Int64s("timeslot_ids", f.TimeslotIDs),
	)
	return created, nil
}

// UpdateEvent replaces the attributes and timeslots of an existing
// event. On failure the event keeps its previous fields and slots.
func (s *Scheduler) UpdateEvent(ctx context.Context, eventID int64, f EventFields) (*model.Event, error) {
	if err := f.check(); err != nil {
		return nil, err
	}

	var updated *model.Event
	err := s.coord.Run(ctx, "update_event", func(ctx context.Context, tx *sqlx.Tx) error {
		e, err := s.events.LockByIDTx(ctx, tx, eventID)
		if err != nil {
			return notFound(err)
		}
		if err := s.requireGenre(ctx, tx, f.GenreID); err != nil {
			return err
		}
		group, err := s.validator.Validate(ctx, tx, f.StartAt, f.EndAt, f.TimeslotIDs)
		if err != nil {
			return err
		}

		if group.VenueID != e.VenueID {
			if err := s.requireCapacity(ctx, tx, eventID, group.VenueID); err != nil {
				return err
			}
		}

		e.VenueID = group.VenueID
		e.GenreID = f.GenreID
		e.Name = f.Name
		e.StartAt = f.StartAt
		e.EndAt = f.EndAt
		e.Price = f.Price
		if err := s.events.UpdateTx(ctx, tx, e); err != nil {
			return err
		}
		if _, err := s.ledger.Release(ctx, tx, eventID); err != nil {
			return err
		}
		if err := s.ledger.ClaimGroup(ctx, tx, eventID, group); err != nil {
			return err
		}

		updated, err = s.events.GetByIDTx(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event updated",
		zap.Int64("event_id", eventID),
		zap.Int64("venue_id", updated.VenueID),
		zap.Int64s("timeslot_ids", f.TimeslotIDs),
	)
	return updated, nil
}

// requireCapacity checks that the seats already sold for eventID fit in
// venueID. The caller holds the event row lock, so no reservation can
// land between the sum and the commit.
func (s *Scheduler) requireCapacity(ctx context.Context, tx *sqlx.Tx, eventID, venueID int64) error {
	venue, err := s.venues.GetByIDTx(ctx, tx, venueID)
	if err != nil {
		return notFound(err)
	}
	reserved, err := s.seats.SumSeatsTx(ctx, tx, eventID)
	if err != nil {
		return err
	}
	if reserved > venue.Capacity {
		return fmt.Errorf("%w: %d seats already reserved, venue %d holds %d", ErrCapacityExceeded, reserved, venueID, venue.Capacity)
	}
	return nil
}

func (s *Scheduler) requireGenre(ctx context.Context, tx *sqlx.Tx, id int64) error {
	ok, err := s.genres.ExistsTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: genre %d does not exist", ErrInvalidInput, id)
	}
	return nil
}

// notFound maps repository lookup misses onto ErrNotFound and leaves
// every other error untouched.
func notFound(err error) error {
	for _, miss := range []error{
		repository.ErrEventNotFound, repository.ErrVenueNotFound, repository.ErrReservationNotFound,
	} {
		if errors.Is(err, miss) {
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}
	return err
}
