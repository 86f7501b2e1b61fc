package booking

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/event-booking/internal/policy"
)

// Sentinel errors returned by the engine. Detail is attached with
// fmt.Errorf("%w: ...") so callers match with errors.Is.
var (
	// ErrInvalidInput rejects malformed or inconsistent requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound means a referenced event, venue or reservation is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a requested timeslot is bound to another event.
	ErrConflict = errors.New("conflict")
	// ErrDuplicate means the user already holds a reservation for the event.
	ErrDuplicate = errors.New("duplicate reservation")
	// ErrCapacityExceeded means the request would oversell the venue.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrConsistencyViolation means stored state broke an invariant.
	ErrConsistencyViolation = errors.New("consistency violation")
	// ErrForbidden means the requester may not act on the resource.
	ErrForbidden = policy.ErrForbidden
)

// MySQL server error numbers the engine reacts to.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// IsClientError reports whether err was caused by the request rather
// than by the server or the database.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrNotFound, ErrConflict, ErrDuplicate, ErrCapacityExceeded, ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsRetryable reports whether the whole unit of work may be rerun after
// err. Only lock contention reported by MySQL qualifies.
func IsRetryable(err error) bool {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == mysqlDeadlock || me.Number == mysqlLockWaitTimeout
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
