package booking

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/repository"
)

var (
	slotCols  = []string{"id", "venue_id", "event_id", "start_at", "end_at", "created_at", "updated_at"}
	eventCols = []string{"id", "artist_id", "venue_id", "genre_id", "name", "start_at", "end_at", "price", "created_at", "updated_at"}
)

func newTestScheduler(db *sqlx.DB) *Scheduler {
	return NewScheduler(
		newTestCoordinator(db),
		repository.NewTimeslotRepo(db),
		repository.NewEventRepo(db),
		repository.NewGenreRepo(db),
		repository.NewVenueRepo(db),
		repository.NewReservationRepo(db),
		zap.NewNop(),
	)
}

func expectGenre(mock sqlmock.Sqlmock, id int64, exists bool) {
	mock.ExpectQuery(q("SELECT EXISTS(SELECT 1 FROM genres WHERE id = ?)")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"ok"}).AddRow(exists))
}

func expectClaim(mock sqlmock.Sqlmock, eventID, slotID, affected int64) {
	mock.ExpectExec(q("UPDATE timeslots SET event_id = ? WHERE id = ? AND event_id IS NULL")).
		WithArgs(eventID, slotID).
		WillReturnResult(sqlmock.NewResult(0, affected))
}

func liveFields(ids ...int64) EventFields {
	return EventFields{
		Name:        "Live",
		GenreID:     2,
		Price:       5000,
		StartAt:     at(9, 0, 0),
		EndAt:       at(18, 0, 0),
		TimeslotIDs: ids,
	}
}

// expectCreateUntilClaims queues everything CreateEvent does before it
// claims slots T1[09-12] and T2[12-18] for event newID.
func expectCreateUntilClaims(mock sqlmock.Sqlmock, newID int64) {
	mock.ExpectBegin()
	expectGenre(mock, 2, true)
	mock.ExpectQuery(q("FROM timeslots WHERE id IN (?, ?) ORDER BY id FOR UPDATE")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(1, 1, nil, at(9, 0, 0), at(12, 0, 0), day, day).
			AddRow(2, 1, nil, at(12, 0, 0), at(18, 0, 0), day, day))
	mock.ExpectExec(q("INSERT INTO events (artist_id, venue_id, genre_id, name, start_at, end_at, price) VALUES (?, ?, ?, ?, ?, ?, ?)")).
		WithArgs(int64(10), int64(1), int64(2), "Live", at(9, 0, 0), at(18, 0, 0), int64(5000)).
		WillReturnResult(sqlmock.NewResult(newID, 1))
	mock.ExpectQuery(q("FROM events WHERE id = ?")).
		WithArgs(newID).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(newID, 10, 1, 2, "Live", at(9, 0, 0), at(18, 0, 0), 5000, day, day))
}

func TestScheduler_CreateEventClaimsBothSlots(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	expectCreateUntilClaims(mock, 30)
	expectClaim(mock, 30, 1, 1)
	expectClaim(mock, 30, 2, 1)
	mock.ExpectCommit()

	e, err := s.CreateEvent(context.Background(), 10, liveFields(1, 2))
	require.NoError(t, err)

	assert.Equal(t, int64(30), e.ID)
	assert.Equal(t, int64(1), e.VenueID)
	assert.Equal(t, int64(10), e.ArtistID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_CreateEventConflictRollsBackInsert(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	expectCreateUntilClaims(mock, 31)
	expectClaim(mock, 31, 1, 0)
	mock.ExpectRollback()

	e, err := s.CreateEvent(context.Background(), 10, liveFields(1, 2))

	assert.Nil(t, e)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_CreateEventPartialClaimRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	expectCreateUntilClaims(mock, 32)
	expectClaim(mock, 32, 1, 1)
	expectClaim(mock, 32, 2, 0)
	mock.ExpectRollback()

	_, err := s.CreateEvent(context.Background(), 10, liveFields(1, 2))

	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_CreateEventRejectsFieldsWithoutTouchingDB(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	for name, f := range map[string]EventFields{
		"blank name": {Name: "  ", GenreID: 2, Price: 1, StartAt: at(9, 0, 0), EndAt: at(12, 0, 0), TimeslotIDs: []int64{1}},
		"no genre":   {Name: "Live", Price: 1, StartAt: at(9, 0, 0), EndAt: at(12, 0, 0), TimeslotIDs: []int64{1}},
		"free show":  {Name: "Live", GenreID: 2, StartAt: at(9, 0, 0), EndAt: at(12, 0, 0), TimeslotIDs: []int64{1}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.CreateEvent(context.Background(), 10, f)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_CreateEventUnknownGenre(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	mock.ExpectBegin()
	expectGenre(mock, 2, false)
	mock.ExpectRollback()

	_, err := s.CreateEvent(context.Background(), 10, liveFields(1))

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// expectUpdateUntilClaim queues an update of event 30 from [T1] to
// [T3 13:00-17:00] up to the claim of T3.
func expectUpdateUntilClaim(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events WHERE id = ? FOR UPDATE")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(30, 10, 1, 2, "Live", at(9, 0, 0), at(12, 0, 0), 5000, day, day))
	expectGenre(mock, 2, true)
	mock.ExpectQuery(q("FROM timeslots WHERE id IN (?) ORDER BY id FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(3, 1, nil, at(13, 0, 0), at(17, 0, 0), day, day))
	mock.ExpectExec(q("UPDATE events SET venue_id = ?, genre_id = ?, name = ?, start_at = ?, end_at = ?, price = ? WHERE id = ?")).
		WithArgs(int64(1), int64(2), "Live Late", at(13, 0, 0), at(17, 0, 0), int64(5000), int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT id FROM timeslots WHERE event_id = ? ORDER BY id FOR UPDATE")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(q("UPDATE timeslots SET event_id = NULL WHERE event_id = ?")).
		WithArgs(int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func lateFields() EventFields {
	return EventFields{
		Name:        "Live Late",
		GenreID:     2,
		Price:       5000,
		StartAt:     at(13, 0, 0),
		EndAt:       at(17, 0, 0),
		TimeslotIDs: []int64{3},
	}
}

func TestScheduler_UpdateEventMovesSlots(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	expectUpdateUntilClaim(mock)
	expectClaim(mock, 30, 3, 1)
	mock.ExpectQuery(q("FROM events WHERE id = ?")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(30, 10, 1, 2, "Live Late", at(13, 0, 0), at(17, 0, 0), 5000, day, day))
	mock.ExpectCommit()

	e, err := s.UpdateEvent(context.Background(), 30, lateFields())
	require.NoError(t, err)

	assert.Equal(t, "Live Late", e.Name)
	assert.Equal(t, at(13, 0, 0), e.StartAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_UpdateEventClaimFailureRollsBackRelease(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	expectUpdateUntilClaim(mock)
	expectClaim(mock, 30, 3, 0)
	mock.ExpectRollback()

	e, err := s.UpdateEvent(context.Background(), 30, lateFields())

	assert.Nil(t, e)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_UpdateEventNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events WHERE id = ? FOR UPDATE")).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.UpdateEvent(context.Background(), 404, lateFields())

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, repository.ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_UpdateEventInconsistentGroup(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events WHERE id = ? FOR UPDATE")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(30, 10, 1, 2, "Live", at(9, 0, 0), at(12, 0, 0), 5000, day, day))
	expectGenre(mock, 2, true)
	mock.ExpectQuery(q("FROM timeslots WHERE id IN (?) ORDER BY id FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(3, 1, nil, at(13, 0, 0), at(17, 0, 0), day, day))
	mock.ExpectExec(q("UPDATE events SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT id FROM timeslots WHERE event_id = ? ORDER BY id FOR UPDATE")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.UpdateEvent(context.Background(), 30, lateFields())

	assert.ErrorIs(t, err, ErrConsistencyViolation)
	assert.False(t, IsClientError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

var venueCols = []string{"id", "name", "capacity", "created_at", "updated_at"}

// expectMoveToVenue2 queues an update of event 30 (venue 1) onto T9
// [13:00-17:00] of venue 2 with capacity 5, up to the seat sum.
func expectMoveToVenue2(mock sqlmock.Sqlmock, reserved int64) {
	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events WHERE id = ? FOR UPDATE")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(30, 10, 1, 2, "Live", at(9, 0, 0), at(12, 0, 0), 5000, day, day))
	expectGenre(mock, 2, true)
	mock.ExpectQuery(q("FROM timeslots WHERE id IN (?) ORDER BY id FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(slotCols).
			AddRow(9, 2, nil, at(13, 0, 0), at(17, 0, 0), day, day))
	mock.ExpectQuery(q("FROM venues WHERE id = ?")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(venueCols).AddRow(2, "Hall B", 5, day, day))
	mock.ExpectQuery(q("SELECT COALESCE(SUM(num_of_resv), 0) FROM reservations WHERE event_id = ?")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(reserved))
}

func movedFields() EventFields {
	f := lateFields()
	f.TimeslotIDs = []int64{9}
	return f
}

func TestScheduler_UpdateEventVenueTooSmallForSoldSeats(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	expectMoveToVenue2(mock, 10)
	mock.ExpectRollback()

	e, err := s.UpdateEvent(context.Background(), 30, movedFields())

	assert.Nil(t, e)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduler_UpdateEventMovesToVenueWithRoom(t *testing.T) {
	db, mock := newMockDB(t)
	s := newTestScheduler(db)

	expectMoveToVenue2(mock, 5)
	mock.ExpectExec(q("UPDATE events SET venue_id = ?, genre_id = ?, name = ?, start_at = ?, end_at = ?, price = ? WHERE id = ?")).
		WithArgs(int64(2), int64(2), "Live Late", at(13, 0, 0), at(17, 0, 0), int64(5000), int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT id FROM timeslots WHERE event_id = ? ORDER BY id FOR UPDATE")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectExec(q("UPDATE timeslots SET event_id = NULL WHERE event_id = ?")).
		WithArgs(int64(30)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectClaim(mock, 30, 9, 1)
	mock.ExpectQuery(q("FROM events WHERE id = ?")).
		WithArgs(int64(30)).
		WillReturnRows(sqlmock.NewRows(eventCols).
			AddRow(30, 10, 2, 2, "Live Late", at(13, 0, 0), at(17, 0, 0), 5000, day, day))
	mock.ExpectCommit()

	e, err := s.UpdateEvent(context.Background(), 30, movedFields())
	require.NoError(t, err)

	assert.Equal(t, int64(2), e.VenueID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
