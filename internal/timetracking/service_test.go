package timetracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/minedor/minedor/internal/platform/httpx"
)

var site = time.FixedZone("CAT", 2*60*60)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService() (*Service, *clock) {
	c := &clock{t: time.Date(2026, 1, 8, 7, 45, 0, 0, site)}
	svc := NewService(NewMemoryRepository(SeedSessions(site)), Schedule{Location: site, LateAfter: 8 * time.Hour})
	svc.now = c.now
	seq := 0
	svc.newID = func() string {
		seq++
		return "pt-new-" + string(rune('a'+seq-1))
	}
	return svc, c
}

func TestClockInBeforeShiftIsPresent(t *testing.T) {
	svc, _ := newTestService()
	sess, err := svc.ClockIn(context.Background(), "usr-002", " Équipe A ")
	require.NoError(t, err)
	require.Equal(t, "pt-new-a", sess.ID)
	require.Equal(t, "2026-01-08", sess.Day)
	require.False(t, sess.Late)
	require.Equal(t, StatusPresent, sess.Status)
	require.Equal(t, "Équipe A", sess.Note)
	require.True(t, sess.Open())
}

func TestClockInUsesSiteCalendar(t *testing.T) {
	svc, c := newTestService()
	c.t = time.Date(2026, 1, 8, 6, 30, 0, 0, time.UTC)

	sess, err := svc.ClockIn(context.Background(), "usr-001", "")
	require.NoError(t, err)
	require.Equal(t, "2026-01-08", sess.Day)
	require.True(t, sess.Late)
	require.Equal(t, StatusLate, sess.Status)
}

func TestClockInTwiceConflicts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, "usr-003", "")
	require.ErrorIs(t, err, ErrAlreadyClockedIn)
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	_, err = svc.ClockIn(ctx, "", "")
	require.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestClockOutRecordsWorkedTime(t *testing.T) {
	svc, c := newTestService()
	ctx := context.Background()

	_, err := svc.ClockOut(ctx, "usr-002")
	require.ErrorIs(t, err, ErrNotClockedIn)

	opened, err := svc.ClockIn(ctx, "usr-002", "")
	require.NoError(t, err)
	c.advance(8*time.Hour + 28*time.Minute)

	current, err := svc.Current(ctx, "usr-002")
	require.NoError(t, err)
	require.Equal(t, opened.ID, current.ID)
	require.Equal(t, 508*time.Minute, svc.Elapsed(current))

	closed, err := svc.ClockOut(ctx, "usr-002")
	require.NoError(t, err)
	require.Equal(t, StatusDeparted, closed.Status)
	require.Equal(t, 508, closed.WorkedMinutes)
	require.NotNil(t, closed.LeftAt)
	require.Equal(t, 508*time.Minute, svc.Elapsed(closed))

	_, err = svc.Current(ctx, "usr-002")
	require.ErrorIs(t, err, ErrNotClockedIn)

	_, err = svc.ClockIn(ctx, "usr-002", "")
	require.NoError(t, err)
}

func TestSummaryCountsByStatus(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	sum, err := svc.Summary(ctx, "2026-01-07")
	require.NoError(t, err)
	require.Equal(t, Summary{Day: "2026-01-07", Late: 1, Departed: 1, WorkedMinutes: 508}, sum)

	_, err = svc.ClockIn(ctx, "usr-001", "")
	require.NoError(t, err)
	sum, err = svc.Summary(ctx, "")
	require.NoError(t, err)
	require.Equal(t, Summary{Day: "2026-01-08", Present: 1}, sum)

	_, err = svc.Summary(ctx, "07/01/2026")
	require.ErrorIs(t, err, ErrInvalidDay)
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	list, err := svc.List(ctx, Filter{Day: "2026-01-07"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "pt-002", list[0].ID)

	list, err = svc.List(ctx, Filter{UserID: "usr-002", Status: StatusDeparted})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.List(ctx, Filter{Status: "absent"})
	require.ErrorIs(t, err, ErrUnknownStatus)

	require.NoError(t, svc.Delete(ctx, "pt-001"))
	require.ErrorIs(t, svc.Delete(ctx, "pt-001"), ErrNotFound)
}

func TestBuildListQuery(t *testing.T) {
	sql, args := buildListQuery(Filter{Day: "2026-01-07", Status: StatusLate})
	require.Contains(t, sql, "WHERE work_day = $1::date AND status = $2")
	require.Equal(t, []any{"2026-01-07", "retard"}, args)
}

type stubDB struct {
	execTag pgconn.CommandTag
	execErr error
	row     pgx.Row
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (s *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.row
}

func (s *stubDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.execTag, s.execErr
}

type noRow struct{}

func (noRow) Scan(dest ...any) error { return pgx.ErrNoRows }

func TestPostgresRepositoryMapsErrors(t *testing.T) {
	ctx := context.Background()

	repo := NewPostgresRepository(&stubDB{row: noRow{}, execTag: pgconn.NewCommandTag("UPDATE 0")})
	_, err := repo.Open(ctx, "usr-001")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Close(ctx, "pt-404", time.Now(), 0), ErrNotFound)

	repo = NewPostgresRepository(&stubDB{execErr: &pgconn.PgError{Code: "23505"}})
	require.ErrorIs(t, repo.Insert(ctx, Session{ID: "pt-x", UserID: "usr-001"}), ErrAlreadyClockedIn)
}
