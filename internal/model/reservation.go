package model

import "time"

// Reservation records a block of seats booked by an audience member for
// a single event. A user holds at most one reservation per event.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – audience member who booked.
//	EventID   – event being reserved.
//	NumOfResv – number of seats in the block (always > 0).
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Reservation struct {
	ID        int64     `db:"id" json:"id"`                   // reservations.id
	UserID    int64     `db:"user_id" json:"user_id"`         // reservations.user_id
	EventID   int64     `db:"event_id" json:"event_id"`       // reservations.event_id
	NumOfResv int64     `db:"num_of_resv" json:"num_of_resv"` // reservations.num_of_resv
	CreatedAt time.Time `db:"created_at" json:"created_at"`   // reservations.created_at
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`   // reservations.updated_at
}

// ReservationDetail extends a reservation with the event and venue
// fields shown in reservation listings.
type ReservationDetail struct {
	Reservation
	EventName    string    `db:"event_name" json:"event_name"`
	EventPrice   int64     `db:"event_price" json:"event_price"`
	EventStartAt time.Time `db:"event_start_at" json:"event_start_at"`
	EventEndAt   time.Time `db:"event_end_at" json:"event_end_at"`
	VenueName    string    `db:"venue_name" json:"venue_name"`
}
