package model

import "time"

// Event is a performance published by an artist. The event occupies
// one or two contiguous timeslots at VenueID; the slots themselves
// record the binding through timeslots.event_id.
//
// Fields:
//
//	ID        – primary key identifier.
//	ArtistID  – user who published the event.
//	VenueID   – venue of the bound timeslots.
//	GenreID   – genre of the event.
//	Name      – display name.
//	StartAt   – start of the performance.
//	EndAt     – end of the performance.
//	Price     – ticket price.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Event struct {
	ID        int64     `db:"id" json:"id"`                 // events.id
	ArtistID  int64     `db:"artist_id" json:"artist_id"`   // events.artist_id
	VenueID   int64     `db:"venue_id" json:"venue_id"`     // events.venue_id
	GenreID   int64     `db:"genre_id" json:"genre_id"`     // events.genre_id
	Name      string    `db:"name" json:"name"`             // events.name
	StartAt   time.Time `db:"start_at" json:"start_at"`     // events.start_at
	EndAt     time.Time `db:"end_at" json:"end_at"`         // events.end_at
	Price     int64     `db:"price" json:"price"`           // events.price
	CreatedAt time.Time `db:"created_at" json:"created_at"` // events.created_at
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // events.updated_at
}

// EventDetail is the read model returned by the public event endpoints.
// It joins the event with its venue, the number of seats reserved so
// far and the ids of the timeslots bound to it.
type EventDetail struct {
	Event
	VenueName   string  `db:"venue_name" json:"venue_name"`
	Capacity    int64   `db:"capacity" json:"capacity"`
	CurrentResv int64   `db:"current_resv" json:"current_resv"`
	TimeslotIDs []int64 `db:"-" json:"timeslot_ids"`
}

// Remaining returns the number of seats still available.
func (d EventDetail) Remaining() int64 {
	if d.CurrentResv >= d.Capacity {
		return 0
	}
	return d.Capacity - d.CurrentResv
}
