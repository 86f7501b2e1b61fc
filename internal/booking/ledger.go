package booking

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TimeslotStore is the persistence the ledger and validator need.
type TimeslotStore interface {
	TimeslotLocker
	ClaimTx(ctx context.Context, tx *sqlx.Tx, eventID, timeslotID int64) (bool, error)
	ListIDsByEventTx(ctx context.Context, tx *sqlx.Tx, eventID int64) ([]int64, error)
	ReleaseByEventTx(ctx context.Context, tx *sqlx.Tx, eventID int64) (int64, error)
}

// Ledger records which event holds each timeslot. A slot is bound to at
// most one event; the conditional update in ClaimTx is what enforces it.
type Ledger struct {
	timeslots TimeslotStore
}

// NewLedger returns a Ledger over timeslots.
func NewLedger(timeslots TimeslotStore) *Ledger {
	return &Ledger{timeslots: timeslots}
}

// Claim binds timeslotID to eventID. It fails with ErrConflict when the
// slot is already held by an event.
func (l *Ledger) Claim(ctx context.Context, tx *sqlx.Tx, eventID, timeslotID int64) error {
	ok, err := l.timeslots.ClaimTx(ctx, tx, eventID, timeslotID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: timeslot %d is already reserved", ErrConflict, timeslotID)
	}
	return nil
}

// ClaimGroup claims every slot of g for eventID, earliest first.
func (l *Ledger) ClaimGroup(ctx context.Context, tx *sqlx.Tx, eventID int64, g SlotGroup) error {
	for _, s := range g.Slots {
		if err := l.Claim(ctx, tx, eventID, s.ID); err != nil {
			return err
		}
	}
	return nil
}

// Release frees every slot held by eventID and returns how many were
// freed. An event always holds one or two slots; anything else, or a
// release that does not free exactly the held group, is reported as
// ErrConsistencyViolation.
func (l *Ledger) Release(ctx context.Context, tx *sqlx.Tx, eventID int64) (int64, error) {
	held, err := l.timeslots.ListIDsByEventTx(ctx, tx, eventID)
	if err != nil {
		return 0, err
	}
	if len(held) == 0 || len(held) > MaxSlotsPerEvent {
		return 0, fmt.Errorf("%w: event %d holds %d timeslots", ErrConsistencyViolation, eventID, len(held))
	}

	released, err := l.timeslots.ReleaseByEventTx(ctx, tx, eventID)
	if err != nil {
		return 0, err
	}
	if released != int64(len(held)) {
		return 0, fmt.Errorf("%w: event %d released %d of %d timeslots", ErrConsistencyViolation, eventID, released, len(held))
	}
	return released, nil
}
