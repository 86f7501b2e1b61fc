package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-booking/internal/model"
)

const reservationColumns = `id, user_id, event_id, num_of_resv, created_at, updated_at`

const reservationDetailQuery = `SELECT r.id, r.user_id, r.event_id, r.num_of_resv, r.created_at, r.updated_at,
	e.name AS event_name, e.price AS event_price, e.start_at AS event_start_at, e.end_at AS event_end_at,
	v.name AS venue_name
	FROM reservations r
	JOIN events e ON e.id = r.event_id
	JOIN venues v ON v.id = e.venue_id`

// ReservationRepo manages the reservations table. Seat accounting reads
// (ExistsForUserTx, SumSeatsTx) are only meaningful while the caller
// holds the event row lock taken by EventRepo.LockByIDTx.
type ReservationRepo struct {
	db *sqlx.DB
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sqlx.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ExistsForUserTx reports whether userID already holds a reservation for
// eventID.
func (r *ReservationRepo) ExistsForUserTx(ctx context.Context, tx *sqlx.Tx, userID, eventID int64) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM reservations WHERE user_id = ? AND event_id = ?)`
	var ok bool
	if err := tx.GetContext(ctx, &ok, q, userID, eventID); err != nil {
		return false, fmt.Errorf("check reservation of user %d: %w", userID, err)
	}
	return ok, nil
}

// SumSeatsTx returns the number of seats reserved for eventID.
func (r *ReservationRepo) SumSeatsTx(ctx context.Context, tx *sqlx.Tx, eventID int64) (int64, error) {
	const q = `SELECT COALESCE(SUM(num_of_resv), 0) FROM reservations WHERE event_id = ?`
	var total int64
	if err := tx.GetContext(ctx, &total, q, eventID); err != nil {
		return 0, fmt.Errorf("sum reserved seats of event %d: %w", eventID, err)
	}
	return total, nil
}

// CreateTx inserts a reservation inside the caller's transaction and
// reads the row back to populate the id and timestamps. Driver errors
// are wrapped, so a duplicate key stays visible through errors.As.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, event_id, num_of_resv) VALUES (?, ?, ?)`
	result, err := tx.ExecContext(ctx, q, res.UserID, res.EventID, res.NumOfResv)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	created, err := getReservation(ctx, tx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	*res = *created
	return nil
}

// LockByIDTx reads a reservation and locks its row until the transaction
// ends. It returns ErrReservationNotFound when the id does not exist.
func (r *ReservationRepo) LockByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Reservation, error) {
	return getReservation(ctx, tx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id)
}

// DeleteTx removes a reservation and returns the number of rows deleted.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sqlx.Tx, id int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete reservation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete reservation %d: %w", id, err)
	}
	return n, nil
}

func getReservation(ctx context.Context, q sqlx.QueryerContext, query string, id int64) (*model.Reservation, error) {
	var res model.Reservation
	err := sqlx.GetContext(ctx, q, &res, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %d: %w", id, err)
	}
	return &res, nil
}

// GetDetail returns a reservation joined with its event and venue.
func (r *ReservationRepo) GetDetail(ctx context.Context, id int64) (*model.ReservationDetail, error) {
	var d model.ReservationDetail
	err := r.db.GetContext(ctx, &d, reservationDetailQuery+` WHERE r.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation detail %d: %w", id, err)
	}
	return &d, nil
}

// ListByUser returns a page of a user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]model.ReservationDetail, error) {
	q := reservationDetailQuery + ` WHERE r.user_id = ? ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`
	details := []model.ReservationDetail{}
	if err := r.db.SelectContext(ctx, &details, q, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("list reservations of user %d: %w", userID, err)
	}
	return details, nil
}

// ListByEvent returns a page of an event's reservations, newest first.
func (r *ReservationRepo) ListByEvent(ctx context.Context, eventID int64, limit, offset int) ([]model.ReservationDetail, error) {
	q := reservationDetailQuery + ` WHERE r.event_id = ? ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`
	details := []model.ReservationDetail{}
	if err := r.db.SelectContext(ctx, &details, q, eventID, limit, offset); err != nil {
		return nil, fmt.Errorf("list reservations of event %d: %w", eventID, err)
	}
	return details, nil
}
