package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-booking/internal/model"
)

// MaxSlotsPerEvent caps the number of timeslots one event may occupy.
const MaxSlotsPerEvent = 2

// maxSlotGap is the largest distance allowed between the end of one
// slot and the start of the next. Seeded slots store inclusive ends
// (10:00:00 to 13:59:59 followed by 14:00:00), so a one second gap is
// still contiguous.
const maxSlotGap = time.Second

// TimeslotLocker reads timeslots under row locks.
type TimeslotLocker interface {
	LockByIDsTx(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]model.Timeslot, error)
}

// SlotGroup is a validated set of timeslots, earliest first, all on the
// same venue.
type SlotGroup struct {
	Slots   []model.Timeslot
	VenueID int64
}

// IDs returns the slot ids in chronological order.
func (g SlotGroup) IDs() []int64 {
	ids := make([]int64, len(g.Slots))
	for i, s := range g.Slots {
		ids[i] = s.ID
	}
	return ids
}

// Validator checks that a proposed event window fits a set of timeslots.
type Validator struct {
	timeslots TimeslotLocker
}

// NewValidator returns a Validator reading slots through timeslots.
func NewValidator(timeslots TimeslotLocker) *Validator {
	return &Validator{timeslots: timeslots}
}

// Validate locks the requested slots and checks that [start, end] is a
// proper window inside them, that they form one contiguous block on a
// single calendar day and that they all belong to the same venue.
// Claim state is not inspected here; the ledger settles that.
func (v *Validator) Validate(ctx context.Context, tx *sqlx.Tx, start, end time.Time, ids []int64) (SlotGroup, error) {
	if err := checkSlotIDs(ids); err != nil {
		return SlotGroup{}, err
	}
	if !end.After(start) {
		return SlotGroup{}, fmt.Errorf("%w: end_at must be after start_at", ErrInvalidInput)
	}

	slots, err := v.timeslots.LockByIDsTx(ctx, tx, ids)
	if err != nil {
		return SlotGroup{}, err
	}
	if len(slots) != len(ids) {
		return SlotGroup{}, fmt.Errorf("%w: timeslot does not exist", ErrInvalidInput)
	}

	earliest, latest := slots[0], slots[len(slots)-1]
	if latest.StartAt.Before(earliest.StartAt) {
		earliest, latest = latest, earliest
	}
	ordered := []model.Timeslot{earliest}
	if len(slots) == 2 {
		ordered = append(ordered, latest)
		gap := latest.StartAt.Sub(earliest.EndAt)
		if gap < 0 || gap > maxSlotGap {
			return SlotGroup{}, fmt.Errorf("%w: timeslots must be contiguous", ErrInvalidInput)
		}
	}

	if !sameDay(earliest.StartAt, latest.EndAt) {
		return SlotGroup{}, fmt.Errorf("%w: timeslots must be on the same day", ErrInvalidInput)
	}
	if start.Before(earliest.StartAt) || end.After(latest.EndAt) {
		return SlotGroup{}, fmt.Errorf("%w: event must fit inside the selected timeslots", ErrInvalidInput)
	}

	venueID := earliest.VenueID
	for _, s := range ordered {
		if s.VenueID != venueID {
			return SlotGroup{}, fmt.Errorf("%w: timeslots must belong to one venue", ErrInvalidInput)
		}
	}

	return SlotGroup{Slots: ordered, VenueID: venueID}, nil
}

func checkSlotIDs(ids []int64) error {
	if len(ids) == 0 || len(ids) > MaxSlotsPerEvent {
		return fmt.Errorf("%w: select 1 to %d timeslots", ErrInvalidInput, MaxSlotsPerEvent)
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: timeslot id must be positive", ErrInvalidInput)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: timeslot %d selected twice", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
