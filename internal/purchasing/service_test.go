package purchasing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/minedor/minedor/internal/platform/httpx"
	"github.com/minedor/minedor/internal/shared"
)

func newTestService() *Service {
	svc := NewService(NewMemoryRepository(SeedPurchases()), shared.NewMoneyFormatter("en", "$"))
	svc.now = func() time.Time { return time.Date(2026, 1, 10, 15, 4, 0, 0, time.UTC) }
	svc.newID = func() string { return "ach-new" }
	return svc
}

func TestSummaryTotalsSeedBook(t *testing.T) {
	svc := newTestService()
	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, sum.Count)
	require.InDelta(t, 21100, sum.Total, 0.001)
	require.InDelta(t, 17100, sum.Pending, 0.001)
	require.Equal(t, map[Status]int{StatusOrdered: 1, StatusInProgress: 2, StatusDelivered: 2}, sum.ByStatus)
	require.Contains(t, sum.TotalFormatted, "21,100")
}

func TestListFiltersByStatusNewestFirst(t *testing.T) {
	svc := newTestService()
	list, err := svc.List(context.Background(), Filter{Status: StatusInProgress})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "ach-004", list[0].ID)
	require.Equal(t, "ach-002", list[1].ID)

	_, err = svc.List(context.Background(), Filter{Status: "perdu"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAddAppliesDefaults(t *testing.T) {
	svc := newTestService()
	p, err := svc.Add(context.Background(), NewPurchase{Item: "  Huile moteur ", Supplier: "Total Congo", Category: CategoryFuel, Amount: 320})
	require.NoError(t, err)
	require.Equal(t, "ach-new", p.ID)
	require.Equal(t, "Huile moteur", p.Item)
	require.Equal(t, StatusOrdered, p.Status)
	require.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), p.Date)

	stored, err := svc.Get(context.Background(), "ach-new")
	require.NoError(t, err)
	require.Equal(t, p, stored)

	_, err = svc.Add(context.Background(), NewPurchase{Item: "x", Supplier: "y", Category: CategoryFuel, Amount: 1})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestAddRejectsInvalidInput(t *testing.T) {
	svc := newTestService()
	cases := []NewPurchase{
		{Supplier: "s", Category: CategoryFuel, Amount: 1},
		{Item: "i", Category: CategoryFuel, Amount: 1},
		{Item: "i", Supplier: "s", Category: "bijoux", Amount: 1},
		{Item: "i", Supplier: "s", Category: CategoryFuel, Amount: 0},
		{Item: "i", Supplier: "s", Category: CategoryFuel, Amount: 1, Status: "perdu"},
	}
	for _, input := range cases {
		_, err := svc.Add(context.Background(), input)
		require.ErrorIs(t, err, httpx.ErrValidation, "%+v", input)
	}
}

func TestUpdateStatusAndDelete(t *testing.T) {
	svc := newTestService()
	p, err := svc.UpdateStatus(context.Background(), "ach-005", StatusDelivered)
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, p.Status)

	_, err = svc.UpdateStatus(context.Background(), "ach-404", StatusDelivered)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.UpdateStatus(context.Background(), "ach-001", "perdu")
	require.ErrorIs(t, err, ErrUnknownStatus)

	require.NoError(t, svc.Delete(context.Background(), "ach-001"))
	require.ErrorIs(t, svc.Delete(context.Background(), "ach-001"), httpx.ErrNotFound)
}

type stubDB struct {
	execTag pgconn.CommandTag
	execErr error
	row     pgx.Row
	lastSQL string
}

func (s *stubDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (s *stubDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.lastSQL = sql
	return s.row
}

func (s *stubDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.lastSQL = sql
	return s.execTag, s.execErr
}

type noRow struct{}

func (noRow) Scan(dest ...any) error { return pgx.ErrNoRows }

func TestPostgresRepositoryMapsErrors(t *testing.T) {
	ctx := context.Background()

	db := &stubDB{execErr: &pgconn.PgError{Code: "23505"}}
	repo := NewPostgresRepository(db)
	err := repo.Insert(ctx, SeedPurchases()[0])
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	db = &stubDB{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo = NewPostgresRepository(db)
	require.ErrorIs(t, repo.UpdateStatus(ctx, "ach-404", StatusDelivered), ErrNotFound)

	db = &stubDB{execTag: pgconn.NewCommandTag("DELETE 1")}
	repo = NewPostgresRepository(db)
	require.NoError(t, repo.Delete(ctx, "ach-001"))
	require.Contains(t, db.lastSQL, "DELETE FROM purchases")

	db = &stubDB{row: noRow{}}
	repo = NewPostgresRepository(db)
	_, err = repo.Get(ctx, "ach-404")
	require.ErrorIs(t, err, ErrNotFound)
}
