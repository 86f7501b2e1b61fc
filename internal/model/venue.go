package model

import "time"

// Venue is a physical location that hosts events. Capacity is fixed
// when the venue is seeded and bounds the total number of seats that
// can be reserved for any single event held there.
//
// Fields:
//
//	ID        – primary key identifier.
//	Name      – display name.
//	Capacity  – total seats available per event (always > 0).
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Venue struct {
	ID        int64     `db:"id" json:"id"`                 // venues.id
	Name      string    `db:"name" json:"name"`             // venues.name
	Capacity  int64     `db:"capacity" json:"capacity"`     // venues.capacity
	CreatedAt time.Time `db:"created_at" json:"created_at"` // venues.created_at
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // venues.updated_at
}
