package booking

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/event-booking/internal/policy"
	"github.com/iliyamo/event-booking/internal/repository"
)

// skipIfNoIntegration skips tests that need a real MySQL server. Point
// TEST_MYSQL_DSN at a scratch database; every table is truncated.
func skipIfNoIntegration(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("Skipping integration test. Set TEST_MYSQL_DSN to run")
	}
	return dsn
}

type fixture struct {
	db        *sqlx.DB
	scheduler *Scheduler
	book      *Book
	venueID   int64
	genreID   int64
	slots     []int64
}

func newFixture(t *testing.T, capacity int64) *fixture {
	dsn := skipIfNoIntegration(t)
	ctx := context.Background()

	db, err := sqlx.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(20)

	schema, err := os.ReadFile("../../db/schema.sql")
	require.NoError(t, err)
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stripComments(stmt)) == "" {
			continue
		}
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	conn, err := db.Connx(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 0")
	require.NoError(t, err)
	for _, table := range []string{"reservations", "timeslots", "events", "genres", "venues"} {
		_, err = conn.ExecContext(ctx, "TRUNCATE TABLE "+table)
		require.NoError(t, err)
	}
	_, err = conn.ExecContext(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	f := &fixture{db: db}
	res, err := db.ExecContext(ctx, "INSERT INTO venues (name, capacity) VALUES (?, ?)", "Hall A", capacity)
	require.NoError(t, err)
	f.venueID, _ = res.LastInsertId()
	res, err = db.ExecContext(ctx, "INSERT INTO genres (name) VALUES (?)", "Rock")
	require.NoError(t, err)
	f.genreID, _ = res.LastInsertId()

	for _, window := range [][2]time.Time{
		{at(9, 0, 0), at(12, 0, 0)},
		{at(12, 0, 0), at(18, 0, 0)},
		{at(19, 0, 0), at(22, 0, 0)},
	} {
		res, err := db.ExecContext(ctx, "INSERT INTO timeslots (venue_id, start_at, end_at) VALUES (?, ?, ?)", f.venueID, window[0], window[1])
		require.NoError(t, err)
		id, _ := res.LastInsertId()
		f.slots = append(f.slots, id)
	}

	coord := NewCoordinator(db, zap.NewNop(), 10*time.Second, RetryConfig{MaxRetries: 5, InitialInterval: 5 * time.Millisecond})
	events := repository.NewEventRepo(db)
	f.scheduler = NewScheduler(coord, repository.NewTimeslotRepo(db), events, repository.NewGenreRepo(db),
		repository.NewVenueRepo(db), repository.NewReservationRepo(db), zap.NewNop())
	f.book = NewBook(coord, events, repository.NewVenueRepo(db), repository.NewReservationRepo(db), zap.NewNop())
	return f
}

func stripComments(stmt string) string {
	var b strings.Builder
	for _, line := range strings.Split(stmt, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "--") {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (f *fixture) fields(start, end time.Time, slots ...int64) EventFields {
	return EventFields{Name: "Live", GenreID: f.genreID, Price: 3000, StartAt: start, EndAt: end, TimeslotIDs: slots}
}

func (f *fixture) holder(t *testing.T, slotID int64) int64 {
	var eventID *int64
	require.NoError(t, f.db.Get(&eventID, "SELECT event_id FROM timeslots WHERE id = ?", slotID))
	if eventID == nil {
		return 0
	}
	return *eventID
}

func TestIntegration_ConcurrentReservationsNeverOversell(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	e, err := f.scheduler.CreateEvent(ctx, 1, f.fields(at(9, 0, 0), at(12, 0, 0), f.slots[0]))
	require.NoError(t, err)

	const buyers = 30
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, full int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := f.book.Reserve(ctx, userID, e.ID, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrCapacityExceeded):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, buyers-10, full)

	var total int64
	require.NoError(t, f.db.Get(&total, "SELECT COALESCE(SUM(num_of_resv), 0) FROM reservations WHERE event_id = ?", e.ID))
	assert.Equal(t, int64(10), total)
}

func TestIntegration_ConcurrentDuplicateReservations(t *testing.T) {
	f := newFixture(t, 100)
	ctx := context.Background()

	e, err := f.scheduler.CreateEvent(ctx, 1, f.fields(at(9, 0, 0), at(12, 0, 0), f.slots[0]))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.book.Reserve(ctx, 7, e.ID, 2)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			assert.ErrorIs(t, err, ErrDuplicate)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestIntegration_CompetingClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins []int64
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(artistID int64) {
			defer wg.Done()
			e, err := f.scheduler.CreateEvent(ctx, artistID, f.fields(at(9, 0, 0), at(18, 0, 0), f.slots[0], f.slots[1]))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins = append(wins, e.ID)
				return
			}
			assert.ErrorIs(t, err, ErrConflict)
		}(int64(i + 1))
	}
	wg.Wait()

	require.Len(t, wins, 1)
	assert.Equal(t, wins[0], f.holder(t, f.slots[0]))
	assert.Equal(t, wins[0], f.holder(t, f.slots[1]))

	var events int
	require.NoError(t, f.db.Get(&events, "SELECT COUNT(*) FROM events"))
	assert.Equal(t, 1, events)
}

func TestIntegration_FailedUpdateLeavesEventUntouched(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	mine, err := f.scheduler.CreateEvent(ctx, 1, f.fields(at(9, 0, 0), at(12, 0, 0), f.slots[0]))
	require.NoError(t, err)
	theirs, err := f.scheduler.CreateEvent(ctx, 2, f.fields(at(19, 0, 0), at(22, 0, 0), f.slots[2]))
	require.NoError(t, err)

	moved := f.fields(at(19, 0, 0), at(22, 0, 0), f.slots[2])
	moved.Name = "Moved"
	_, err = f.scheduler.UpdateEvent(ctx, mine.ID, moved)
	require.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, mine.ID, f.holder(t, f.slots[0]))
	assert.Equal(t, theirs.ID, f.holder(t, f.slots[2]))
	var name string
	require.NoError(t, f.db.Get(&name, "SELECT name FROM events WHERE id = ?", mine.ID))
	assert.Equal(t, "Live", name)

	updated, err := f.scheduler.UpdateEvent(ctx, mine.ID, f.fields(at(12, 0, 0), at(18, 0, 0), f.slots[1]))
	require.NoError(t, err)
	assert.Equal(t, at(12, 0, 0), updated.StartAt)
	assert.Zero(t, f.holder(t, f.slots[0]))
	assert.Equal(t, mine.ID, f.holder(t, f.slots[1]))
}

func TestIntegration_CancelReopensSeats(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	e, err := f.scheduler.CreateEvent(ctx, 1, f.fields(at(9, 0, 0), at(12, 0, 0), f.slots[0]))
	require.NoError(t, err)

	r, err := f.book.Reserve(ctx, 5, e.ID, 2)
	require.NoError(t, err)
	_, err = f.book.Reserve(ctx, 6, e.ID, 1)
	require.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = f.book.Cancel(ctx, r.ID, policy.Principal{UserID: 5, Role: policy.RoleAudience})
	require.NoError(t, err)

	_, err = f.book.Reserve(ctx, 6, e.ID, 2)
	assert.NoError(t, err)
}
