package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-booking/internal/model"
)

const timeslotColumns = `id, venue_id, event_id, start_at, end_at, created_at, updated_at`

// TimeslotRepo manages the timeslots table. Timeslots are seeded ahead
// of time; the only column this service ever writes is event_id.
type TimeslotRepo struct {
	db *sqlx.DB
}

// NewTimeslotRepo returns a TimeslotRepo bound to the given database.
func NewTimeslotRepo(db *sqlx.DB) *TimeslotRepo { return &TimeslotRepo{db: db} }

// LockByIDsTx reads the requested timeslots and holds exclusive row locks
// on them until the transaction ends. Rows are locked in primary key
// order so two transactions asking for overlapping sets cannot deadlock
// on each other. Ids that do not exist are simply absent from the result.
func (r *TimeslotRepo) LockByIDsTx(ctx context.Context, tx *sqlx.Tx, ids []int64) ([]model.Timeslot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`SELECT `+timeslotColumns+` FROM timeslots WHERE id IN (?) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("build timeslot lock query: %w", err)
	}
	var slots []model.Timeslot
	if err := tx.SelectContext(ctx, &slots, tx.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("lock timeslots: %w", err)
	}
	return slots, nil
}

// ClaimTx binds a free timeslot to eventID. The update only matches
// while event_id is NULL, so it reports false when another event already
// holds the slot (or the slot does not exist).
func (r *TimeslotRepo) ClaimTx(ctx context.Context, tx *sqlx.Tx, eventID, timeslotID int64) (bool, error) {
	const q = `UPDATE timeslots SET event_id = ? WHERE id = ? AND event_id IS NULL`
	res, err := tx.ExecContext(ctx, q, eventID, timeslotID)
	if err != nil {
		return false, fmt.Errorf("claim timeslot %d: %w", timeslotID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim timeslot %d: %w", timeslotID, err)
	}
	return n == 1, nil
}

// ListIDsByEventTx returns the ids of the timeslots bound to eventID and
// locks them for the rest of the transaction.
func (r *TimeslotRepo) ListIDsByEventTx(ctx context.Context, tx *sqlx.Tx, eventID int64) ([]int64, error) {
	const q = `SELECT id FROM timeslots WHERE event_id = ? ORDER BY id FOR UPDATE`
	var ids []int64
	if err := tx.SelectContext(ctx, &ids, q, eventID); err != nil {
		return nil, fmt.Errorf("list timeslots of event %d: %w", eventID, err)
	}
	return ids, nil
}

// ReleaseByEventTx unbinds every timeslot held by eventID and returns how
// many rows changed.
func (r *TimeslotRepo) ReleaseByEventTx(ctx context.Context, tx *sqlx.Tx, eventID int64) (int64, error) {
	const q = `UPDATE timeslots SET event_id = NULL WHERE event_id = ?`
	res, err := tx.ExecContext(ctx, q, eventID)
	if err != nil {
		return 0, fmt.Errorf("release timeslots of event %d: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release timeslots of event %d: %w", eventID, err)
	}
	return n, nil
}

// ListAvailable returns the unclaimed timeslots of a venue whose start
// falls inside [from, to], earliest first.
func (r *TimeslotRepo) ListAvailable(ctx context.Context, venueID int64, from, to time.Time) ([]model.Timeslot, error) {
	const q = `SELECT ` + timeslotColumns + ` FROM timeslots
		WHERE venue_id = ? AND event_id IS NULL AND start_at BETWEEN ? AND ?
		ORDER BY start_at`
	slots := []model.Timeslot{}
	if err := r.db.SelectContext(ctx, &slots, q, venueID, from, to); err != nil {
		return nil, fmt.Errorf("list available timeslots: %w", err)
	}
	return slots, nil
}
