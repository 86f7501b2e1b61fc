// Package queue defines the booking activity messages exchanged over
// RabbitMQ and the consumer that records them.
package queue

import "time"

// Kind names what happened.
type Kind string

const (
	EventScheduled       Kind = "event.scheduled"
	EventRescheduled     Kind = "event.rescheduled"
	ReservationCreated   Kind = "reservation.created"
	ReservationCancelled Kind = "reservation.cancelled"
)

// Activity is published after a booking operation commits. It carries
// enough context for downstream consumers (audit, notifications,
// analytics) to act without querying the primary database. Fields that
// do not apply to a Kind are omitted.
type Activity struct {
	Kind          Kind      `json:"kind"`
	EventID       int64     `json:"event_id"`
	ActorID       int64     `json:"actor_id"`
	VenueID       int64     `json:"venue_id,omitempty"`
	TimeslotIDs   []int64   `json:"timeslot_ids,omitempty"`
	ReservationID int64     `json:"reservation_id,omitempty"`
	UserID        int64     `json:"user_id,omitempty"`
	Seats         int64     `json:"seats,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
