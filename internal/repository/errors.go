// Package repository contains the MySQL data access layer. Repositories
// expose plain reads on their own handle and Tx-suffixed methods that
// run inside a caller supplied transaction, so the booking engine can
// compose several of them into one atomic unit.
//
// Lookups that find nothing return one of the sentinel values below so
// higher layers can tell a missing row apart from a failed query.
package repository

import "errors"

// ErrEventNotFound is returned when no event row matches the given id.
var ErrEventNotFound = errors.New("event not found")

// ErrVenueNotFound is returned when no venue row matches the given id.
var ErrVenueNotFound = errors.New("venue not found")

// ErrReservationNotFound is returned when no reservation row matches the
// given id.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrGenreNotFound is returned when no genre row matches the given id.
var ErrGenreNotFound = errors.New("genre not found")
