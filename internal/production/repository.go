package production

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

// Repository defines data access methods for production entries.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	Insert(ctx context.Context, e Entry) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
}

// sortEntries orders newest first, ties broken by creation then id.
func sortEntries(list []Entry) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.After(list[j].Date)
		}
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// MemoryRepository keeps entries in process.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryRepository indexes the seed entries by id.
func NewMemoryRepository(seed []Entry) *MemoryRepository {
	repo := &MemoryRepository{entries: make(map[string]Entry, len(seed))}
	for _, e := range seed {
		repo.entries[e.ID] = e
	}
	return repo
}

// List returns entries matching filter.
func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if filter.Team != "" && e.Team != filter.Team {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

// Get returns the entry with id.
func (r *MemoryRepository) Get(ctx context.Context, id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Insert stores a new entry.
func (r *MemoryRepository) Insert(ctx context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.ID]; exists {
		return fmt.Errorf("production: insert %s: %w", e.ID, httpx.ErrDuplicate)
	}
	r.entries[e.ID] = e
	return nil
}

// UpdateStatus changes the status of an existing entry.
func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	r.entries[id] = e
	return nil
}

// Delete removes the entry.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return ErrNotFound
	}
	delete(r.entries, id)
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

const entryColumns = `id, entry_date, team, shift, quantity_grams, purity, operator_id, notes, status, created_at`

func buildListQuery(filter Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Team != "" {
		args = append(args, string(filter.Team))
		where = append(where, "team = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	sql := `SELECT ` + entryColumns + ` FROM production_entries`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	return sql + ` ORDER BY entry_date DESC, created_at DESC, id`, args
}

// List returns entries matching filter.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Entry, error) {
	sql, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("production: list: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("production: list: %w", err)
	}
	return out, nil
}

// Get returns the entry with id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Entry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM production_entries WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

const insertEntry = `INSERT INTO production_entries (` + entryColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Insert stores a new entry.
func (r *PostgresRepository) Insert(ctx context.Context, e Entry) error {
	_, err := r.db.Exec(ctx, insertEntry,
		e.ID, e.Date, string(e.Team), string(e.Shift), e.Quantity, e.Purity, e.OperatorID, e.Notes, string(e.Status), e.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("production: insert %s: %w", e.ID, httpx.ErrDuplicate)
		}
		return fmt.Errorf("production: insert %s: %w", e.ID, err)
	}
	return nil
}

// UpdateStatus changes the status of an existing entry.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE production_entries SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("production: update status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the entry.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM production_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("production: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Seed inserts entries that do not exist yet.
func (r *PostgresRepository) Seed(ctx context.Context, seed []Entry) error {
	for _, e := range seed {
		_, err := r.db.Exec(ctx, insertEntry+` ON CONFLICT (id) DO NOTHING`,
			e.ID, e.Date, string(e.Team), string(e.Shift), e.Quantity, e.Purity, e.OperatorID, e.Notes, string(e.Status), e.CreatedAt)
		if err != nil {
			return fmt.Errorf("production: seed %s: %w", e.ID, err)
		}
	}
	return nil
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		e                   Entry
		team, shift, status string
	)
	if err := row.Scan(&e.ID, &e.Date, &team, &shift, &e.Quantity, &e.Purity, &e.OperatorID, &e.Notes, &status, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("production: scan: %w", err)
	}
	e.Team = Team(team)
	e.Shift = Shift(shift)
	e.Status = Status(status)
	e.Grade = GradeOf(e.Purity)
	return e, nil
}
