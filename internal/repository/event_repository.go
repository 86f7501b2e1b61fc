package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-booking/internal/model"
)

const eventColumns = `id, artist_id, venue_id, genre_id, name, start_at, end_at, price, created_at, updated_at`

// eventDetailQuery joins an event with its venue and the seats reserved
// so far. Callers append a WHERE clause.
const eventDetailQuery = `SELECT e.id, e.artist_id, e.venue_id, e.genre_id, e.name, e.start_at, e.end_at, e.price,
	e.created_at, e.updated_at, v.name AS venue_name, v.capacity,
	COALESCE((SELECT SUM(r.num_of_resv) FROM reservations r WHERE r.event_id = e.id), 0) AS current_resv
	FROM events e JOIN venues v ON v.id = e.venue_id`

// EventRepo manages the events table.
type EventRepo struct {
	db *sqlx.DB
}

// NewEventRepo returns an EventRepo bound to the given database.
func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db} }

// CreateTx inserts a new event inside the caller's transaction and reads
// the row back so the generated id and timestamps are populated on e.
func (r *EventRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, e *model.Event) error {
	const q = `INSERT INTO events (artist_id, venue_id, genre_id, name, start_at, end_at, price) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, e.ArtistID, e.VenueID, e.GenreID, e.Name, e.StartAt, e.EndAt, e.Price)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	created, err := r.GetByIDTx(ctx, tx, id)
	if err != nil {
		return err
	}
	*e = *created
	return nil
}

// LockByIDTx reads an event and holds an exclusive lock on its row until
// the transaction ends. Every writer that touches the event's
// reservations or timeslots goes through this lock first.
func (r *EventRepo) LockByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Event, error) {
	return getEvent(ctx, tx, `SELECT `+eventColumns+` FROM events WHERE id = ? FOR UPDATE`, id)
}

// GetByIDTx reads an event inside the caller's transaction without
// locking it.
func (r *EventRepo) GetByIDTx(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Event, error) {
	return getEvent(ctx, tx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
}

// GetByID reads an event outside of any transaction.
func (r *EventRepo) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	return getEvent(ctx, r.db, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
}

func getEvent(ctx context.Context, q sqlx.QueryerContext, query string, id int64) (*model.Event, error) {
	var e model.Event
	err := sqlx.GetContext(ctx, q, &e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return &e, nil
}

// UpdateTx overwrites the mutable columns of an event. The event must
// already be locked by the caller.
func (r *EventRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, e *model.Event) error {
	const q = `UPDATE events SET venue_id = ?, genre_id = ?, name = ?, start_at = ?, end_at = ?, price = ? WHERE id = ?`
	if _, err := tx.ExecContext(ctx, q, e.VenueID, e.GenreID, e.Name, e.StartAt, e.EndAt, e.Price, e.ID); err != nil {
		return fmt.Errorf("update event %d: %w", e.ID, err)
	}
	return nil
}

// GetDetail returns the read model of a single event. It returns
// ErrEventNotFound when the id does not exist.
func (r *EventRepo) GetDetail(ctx context.Context, id int64) (*model.EventDetail, error) {
	var d model.EventDetail
	err := r.db.GetContext(ctx, &d, eventDetailQuery+` WHERE e.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event detail %d: %w", id, err)
	}
	details := []model.EventDetail{d}
	if err := r.attachTimeslotIDs(ctx, details); err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListUpcoming returns events that start today or later, soonest first.
// A non-zero artistID restricts the listing to that artist's events.
func (r *EventRepo) ListUpcoming(ctx context.Context, artistID int64, now time.Time, limit, offset int) ([]model.EventDetail, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	q := eventDetailQuery + ` WHERE e.start_at >= ?`
	args := []any{today}
	if artistID != 0 {
		q += ` AND e.artist_id = ?`
		args = append(args, artistID)
	}
	q += ` ORDER BY e.start_at, e.id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	details := []model.EventDetail{}
	if err := r.db.SelectContext(ctx, &details, q, args...); err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}
	if err := r.attachTimeslotIDs(ctx, details); err != nil {
		return nil, err
	}
	return details, nil
}

// attachTimeslotIDs fills TimeslotIDs on every detail with a single query.
func (r *EventRepo) attachTimeslotIDs(ctx context.Context, details []model.EventDetail) error {
	if len(details) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(details))
	index := make(map[int64]int, len(details))
	for i := range details {
		ids = append(ids, details[i].ID)
		index[details[i].ID] = i
		details[i].TimeslotIDs = []int64{}
	}
	q, args, err := sqlx.In(`SELECT id, event_id FROM timeslots WHERE event_id IN (?) ORDER BY start_at`, ids)
	if err != nil {
		return fmt.Errorf("build timeslot query: %w", err)
	}
	var rows []struct {
		ID      int64 `db:"id"`
		EventID int64 `db:"event_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(q), args...); err != nil {
		return fmt.Errorf("list event timeslots: %w", err)
	}
	for _, row := range rows {
		if i, ok := index[row.EventID]; ok {
			details[i].TimeslotIDs = append(details[i].TimeslotIDs, row.ID)
		}
	}
	return nil
}
