// Package policy decides whether an authenticated principal may perform
// an action. Every handler and the reservation book funnel their checks
// through Authorize so ownership rules live in one place.
package policy

import (
	"errors"
	"fmt"
)

// Role is the coarse classification carried in an access token.
type Role string

const (
	RoleAudience Role = "audience"
	RoleArtist   Role = "artist"
	RoleOwner    Role = "owner"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAudience, RoleArtist, RoleOwner:
		return true
	}
	return false
}

// Principal is the verified identity attached to a request.
type Principal struct {
	UserID int64
	Role   Role
}

// Action names an operation subject to authorization.
type Action string

const (
	CreateEvent           Action = "create_event"
	UpdateEvent           Action = "update_event"
	Reserve               Action = "reserve"
	ViewReservation       Action = "view_reservation"
	CancelReservation     Action = "cancel_reservation"
	ListEventReservations Action = "list_event_reservations"
	ListUserReservations  Action = "list_user_reservations"
	ListGenres            Action = "list_genres"
	ListTimeslots         Action = "list_timeslots"
)

// ErrForbidden is returned when a principal may not perform an action.
var ErrForbidden = errors.New("forbidden")

// Authorize returns nil when p may perform a on a resource owned by
// ownerID. ownerID is ignored by actions that are not ownership scoped.
// The owner role may perform every action except creating events and
// reserving seats, which always act on behalf of the caller.
func Authorize(p Principal, ownerID int64, a Action) error {
	if allowed(p, ownerID, a) {
		return nil
	}
	return fmt.Errorf("%w: %s may not %s", ErrForbidden, p.Role, a)
}

func allowed(p Principal, ownerID int64, a Action) bool {
	if p.UserID <= 0 || !p.Role.Valid() {
		return false
	}
	switch a {
	case CreateEvent:
		return p.Role == RoleArtist
	case Reserve:
		return p.Role == RoleAudience
	case UpdateEvent, ListEventReservations:
		return p.Role == RoleOwner || (p.Role == RoleArtist && p.UserID == ownerID)
	case ViewReservation, CancelReservation, ListUserReservations:
		return p.Role == RoleOwner || (p.Role == RoleAudience && p.UserID == ownerID)
	case ListGenres, ListTimeslots:
		return p.Role == RoleArtist || p.Role == RoleOwner
	}
	return false
}
