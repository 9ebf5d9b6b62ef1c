package production

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

func newTestService() *Service {
	svc := NewService(NewMemoryRepository(SeedEntries()))
	svc.now = func() time.Time { return time.Date(2026, 1, 8, 18, 0, 0, 0, time.UTC) }
	svc.newID = func() string { return "prod-new" }
	return svc
}

func ptr(v float64) *float64 { return &v }

func TestGradeOf(t *testing.T) {
	require.Equal(t, GradeHigh, GradeOf(90))
	require.Equal(t, GradeMedium, GradeOf(89.9))
	require.Equal(t, GradeMedium, GradeOf(85))
	require.Equal(t, GradeLow, GradeOf(84.9))
}

func TestSummaryWeightsPurityByQuantity(t *testing.T) {
	svc := newTestService()
	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 6, sum.Entries)
	require.InDelta(t, 1155, sum.TotalGrams, 0.001)
	require.InDelta(t, 90.6, sum.AveragePurity, 0.001)
	require.InDelta(t, 597, sum.ByTeam[TeamA], 0.001)
	require.InDelta(t, 558, sum.ByTeam[TeamB], 0.001)
	require.Equal(t, map[Grade]int{GradeHigh: 4, GradeMedium: 1, GradeLow: 1}, sum.ByGrade)
}

func TestSummarySkipsCancelledEntries(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	_, err := svc.UpdateStatus(ctx, "prod-005", StatusCancelled)
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, sum.Entries)
	require.InDelta(t, 945, sum.TotalGrams, 0.001)
	require.Equal(t, 0, sum.ByGrade[GradeLow])
}

func TestRecordDefaultsAndClamps(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	e, err := svc.Record(ctx, NewEntry{Team: TeamA, Shift: ShiftMorning, Quantity: 150})
	require.NoError(t, err)
	require.Equal(t, "prod-new", e.ID)
	require.InDelta(t, 90, e.Purity, 0.001)
	require.Equal(t, GradeHigh, e.Grade)
	require.Equal(t, StatusValid, e.Status)
	require.Equal(t, time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC), e.Date)

	svc.newID = func() string { return "prod-new-2" }
	e, err = svc.Record(ctx, NewEntry{Team: TeamB, Shift: ShiftEvening, Quantity: 10, Purity: ptr(140)})
	require.NoError(t, err)
	require.InDelta(t, 100, e.Purity, 0.001)

	list, err := svc.List(ctx, Filter{Team: TeamB})
	require.NoError(t, err)
	require.Equal(t, "prod-new-2", list[0].ID)
}

func TestRecordRejectsInvalidEntries(t *testing.T) {
	svc := newTestService()
	cases := []NewEntry{
		{Team: "C", Shift: ShiftDay, Quantity: 1},
		{Team: TeamA, Shift: "nuit", Quantity: 1},
		{Team: TeamA, Shift: ShiftDay, Quantity: 0},
	}
	for _, input := range cases {
		_, err := svc.Record(context.Background(), input)
		require.ErrorIs(t, err, ErrInvalidEntry, "%+v", input)
	}

	_, err := svc.List(context.Background(), Filter{Status: "perdu"})
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestBuildListQuery(t *testing.T) {
	sql, args := buildListQuery(Filter{Team: TeamA, Status: StatusValid})
	require.Contains(t, sql, "WHERE team = $1 AND status = $2")
	require.Equal(t, []any{"A", "valide"}, args)
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

	repo := NewPostgresRepository(&stubDB{row: noRow{}, execTag: pgconn.NewCommandTag("DELETE 0")})
	_, err := repo.Get(ctx, "prod-404")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, "prod-404"), ErrNotFound)

	repo = NewPostgresRepository(&stubDB{execErr: &pgconn.PgError{Code: "23505"}})
	require.ErrorIs(t, repo.Insert(ctx, Entry{ID: "prod-001"}), httpx.ErrDuplicate)
}
