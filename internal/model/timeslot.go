package model

import (
	"database/sql"
	"time"
)

// Timeslot is a pre-seeded window of time at a venue. Only EventID
// ever changes after seeding: it is NULL while the slot is free and
// holds the owning event's id once the slot has been claimed.
//
// Fields:
//
//	ID        – primary key identifier.
//	VenueID   – venue the slot belongs to.
//	EventID   – event currently bound to the slot (nullable).
//	StartAt   – first instant of the slot.
//	EndAt     – last instant of the slot.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Timeslot struct {
	ID        int64         `db:"id" json:"id"`                 // timeslots.id
	VenueID   int64         `db:"venue_id" json:"venue_id"`     // timeslots.venue_id
	EventID   sql.NullInt64 `db:"event_id" json:"-"`            // timeslots.event_id (nullable)
	StartAt   time.Time     `db:"start_at" json:"start_at"`     // timeslots.start_at
	EndAt     time.Time     `db:"end_at" json:"end_at"`         // timeslots.end_at
	CreatedAt time.Time     `db:"created_at" json:"created_at"` // timeslots.created_at
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"` // timeslots.updated_at
}

// Claimed reports whether the slot is bound to an event.
func (t Timeslot) Claimed() bool { return t.EventID.Valid }
