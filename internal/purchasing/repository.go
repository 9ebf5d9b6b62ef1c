package purchasing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Repository defines data access methods for purchases.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Purchase, error)
	Get(ctx context.Context, id string) (Purchase, error)
	Insert(ctx context.Context, p Purchase) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
}

// sortPurchases orders newest first, ties broken by id.
func sortPurchases(list []Purchase) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.After(list[j].Date)
		}
		return list[i].ID < list[j].ID
	})
}

// MemoryRepository keeps purchases in process.
type MemoryRepository struct {
	mu        sync.RWMutex
	purchases map[string]Purchase
}

// NewMemoryRepository indexes the seed purchases by id.
func NewMemoryRepository(seed []Purchase) *MemoryRepository {
	repo := &MemoryRepository{purchases: make(map[string]Purchase, len(seed))}
	for _, p := range seed {
		repo.purchases[p.ID] = p
	}
	return repo
}

// List returns purchases matching filter.
func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Purchase, 0, len(r.purchases))
	for _, p := range r.purchases {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sortPurchases(out)
	return out, nil
}

// Get returns the purchase with id.
func (r *MemoryRepository) Get(ctx context.Context, id string) (Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.purchases[id]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	return p, nil
}

// Insert stores a new purchase.
func (r *MemoryRepository) Insert(ctx context.Context, p Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.purchases[p.ID]; exists {
		return fmt.Errorf("purchasing: insert %s: %w", p.ID, httpx.ErrDuplicate)
	}
	r.purchases[p.ID] = p
	return nil
}

// UpdateStatus changes the status of an existing purchase.
func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.purchases[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	r.purchases[id] = p
	return nil
}

// Delete removes the purchase.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.purchases[id]; !ok {
		return ErrNotFound
	}
	delete(r.purchases, id)
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository provides PostgreSQL backed persistence.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository constructs a repository on a pool or transaction.
func NewPostgresRepository(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const purchaseColumns = `id, item, supplier, category, amount, purchase_date, status`

// List returns purchases matching filter.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Purchase, error) {
	sql := `SELECT ` + purchaseColumns + ` FROM purchases`
	var args []any
	if filter.Status != "" {
		sql += ` WHERE status = $1`
		args = append(args, string(filter.Status))
	}
	sql += ` ORDER BY purchase_date DESC, id`
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("purchasing: list: %w", err)
	}
	defer rows.Close()
	var out []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purchasing: list: %w", err)
	}
	return out, nil
}

// Get returns the purchase with id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Purchase, error) {
	p, err := scanPurchase(r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, ErrNotFound
	}
	return p, err
}

// Insert stores a new purchase.
func (r *PostgresRepository) Insert(ctx context.Context, p Purchase) error {
	_, err := r.db.Exec(ctx, `INSERT INTO purchases (`+purchaseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Item, p.Supplier, string(p.Category), p.Amount, p.Date, string(p.Status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("purchasing: insert %s: %w", p.ID, httpx.ErrDuplicate)
		}
		return fmt.Errorf("purchasing: insert %s: %w", p.ID, err)
	}
	return nil
}

// UpdateStatus changes the status of an existing purchase.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE purchases SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("purchasing: update status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the purchase.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("purchasing: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Seed inserts purchases that do not exist yet.
func (r *PostgresRepository) Seed(ctx context.Context, seed []Purchase) error {
	for _, p := range seed {
		_, err := r.db.Exec(ctx, `INSERT INTO purchases (`+purchaseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
			p.ID, p.Item, p.Supplier, string(p.Category), p.Amount, p.Date, string(p.Status))
		if err != nil {
			return fmt.Errorf("purchasing: seed %s: %w", p.ID, err)
		}
	}
	return nil
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p                Purchase
		category, status string
	)
	if err := row.Scan(&p.ID, &p.Item, &p.Supplier, &category, &p.Amount, &p.Date, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, err
		}
		return Purchase{}, fmt.Errorf("purchasing: scan: %w", err)
	}
	p.Category = Category(category)
	p.Status = Status(status)
	return p, nil
}
