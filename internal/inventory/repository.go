package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Repository defines data access methods for the equipment fleet.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Equipment, error)
	Get(ctx context.Context, id string) (Equipment, error)
	Insert(ctx context.Context, e Equipment) error
	Update(ctx context.Context, e Equipment) error
	// SetStatus moves every id to status, or none when one id is unknown.
	SetStatus(ctx context.Context, ids []string, status Status) error
	Delete(ctx context.Context, id string) error
}

func sortEquipment(list []Equipment) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}

func matches(e Equipment, filter Filter) bool {
	if filter.Status != "" && e.Status != filter.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		return strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(string(e.Kind), q)
	}
	return true
}

// MemoryRepository keeps the fleet in process.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Equipment
}

// NewMemoryRepository indexes the seed fleet by id.
func NewMemoryRepository(seed []Equipment) *MemoryRepository {
	repo := &MemoryRepository{items: make(map[string]Equipment, len(seed))}
	for _, e := range seed {
		repo.items[e.ID] = e
	}
	return repo
}

// List returns equipment matching filter ordered by id.
func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Equipment, 0, len(r.items))
	for _, e := range r.items {
		if matches(e, filter) {
			out = append(out, e)
		}
	}
	sortEquipment(out)
	return out, nil
}

// Get returns the equipment with id.
func (r *MemoryRepository) Get(ctx context.Context, id string) (Equipment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.items[id]
	if !ok {
		return Equipment{}, ErrNotFound
	}
	return e, nil
}

// Insert stores new equipment.
func (r *MemoryRepository) Insert(ctx context.Context, e Equipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[e.ID]; exists {
		return fmt.Errorf("inventory: insert %s: %w", e.ID, httpx.ErrDuplicate)
	}
	r.items[e.ID] = e
	return nil
}

// Update replaces the stored row of e.ID.
func (r *MemoryRepository) Update(ctx context.Context, e Equipment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[e.ID]; !ok {
		return ErrNotFound
	}
	r.items[e.ID] = e
	return nil
}

// SetStatus moves every id to status.
func (r *MemoryRepository) SetStatus(ctx context.Context, ids []string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.items[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}
	for _, id := range ids {
		e := r.items[id]
		e.Status = status
		if status == StatusOperational {
			e.Reason = ""
		}
		r.items[id] = e
	}
	return nil
}

// Delete removes the equipment.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return ErrNotFound
	}
	delete(r.items, id)
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository provides PostgreSQL backed persistence.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository constructs a repository on a pool or transaction.
func NewPostgresRepository(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const equipmentColumns = `id, name, kind, status, total_hours, location, next_maintenance, reason`

func buildListQuery(filter Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		args = append(args, q)
		n := strconv.Itoa(len(args))
		where = append(where, "(position($"+n+" in lower(name)) > 0 OR position($"+n+" in kind) > 0)")
	}
	sql := `SELECT ` + equipmentColumns + ` FROM equipment`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	return sql + ` ORDER BY id`, args
}

// List returns equipment matching filter ordered by id.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Equipment, error) {
	sql, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("inventory: list: %w", err)
	}
	defer rows.Close()
	var out []Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory: list: %w", err)
	}
	return out, nil
}

// Get returns the equipment with id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Equipment, error) {
	e, err := scanEquipment(r.db.QueryRow(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Equipment{}, ErrNotFound
	}
	return e, err
}

// Insert stores new equipment.
func (r *PostgresRepository) Insert(ctx context.Context, e Equipment) error {
	_, err := r.db.Exec(ctx, `INSERT INTO equipment (`+equipmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.Name, string(e.Kind), string(e.Status), e.TotalHours, e.Location, e.NextMaintenance, e.Reason)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("inventory: insert %s: %w", e.ID, httpx.ErrDuplicate)
		}
		return fmt.Errorf("inventory: insert %s: %w", e.ID, err)
	}
	return nil
}

// Update replaces the mutable columns of e.ID.
func (r *PostgresRepository) Update(ctx context.Context, e Equipment) error {
	tag, err := r.db.Exec(ctx, `UPDATE equipment SET status = $2, reason = $3, next_maintenance = $4, total_hours = $5 WHERE id = $1`,
		e.ID, string(e.Status), e.Reason, e.NextMaintenance, e.TotalHours)
	if err != nil {
		return fmt.Errorf("inventory: update %s: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus moves every id to status inside one transaction. ids must be
// distinct.
func (r *PostgresRepository) SetStatus(ctx context.Context, ids []string, status Status) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE equipment
			SET status = $1, reason = CASE WHEN $1 = 'operationnel' THEN '' ELSE reason END
			WHERE id = ANY($2)`, string(status), ids)
		if err != nil {
			return fmt.Errorf("inventory: set status: %w", err)
		}
		if tag.RowsAffected() != int64(len(ids)) {
			return fmt.Errorf("%w: %d of %d updated", ErrNotFound, tag.RowsAffected(), len(ids))
		}
		return nil
	})
}

// Delete removes the equipment.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM equipment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("inventory: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Seed inserts equipment that does not exist yet.
func (r *PostgresRepository) Seed(ctx context.Context, seed []Equipment) error {
	batch := &pgx.Batch{}
	for _, e := range seed {
		batch.Queue(`INSERT INTO equipment (`+equipmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING`,
			e.ID, e.Name, string(e.Kind), string(e.Status), e.TotalHours, e.Location, e.NextMaintenance, e.Reason)
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inventory: seed: %w", err)
		}
		return nil
	})
}

func scanEquipment(row pgx.Row) (Equipment, error) {
	var (
		e            Equipment
		kind, status string
	)
	if err := row.Scan(&e.ID, &e.Name, &kind, &status, &e.TotalHours, &e.Location, &e.NextMaintenance, &e.Reason); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Equipment{}, err
		}
		return Equipment{}, fmt.Errorf("inventory: scan: %w", err)
	}
	e.Kind = Kind(kind)
	e.Status = Status(status)
	return e, nil
}
