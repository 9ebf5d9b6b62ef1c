package expenses

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

// Repository defines data access methods for expenses.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Expense, error)
	Get(ctx context.Context, id string) (Expense, error)
	Insert(ctx context.Context, e Expense) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
}

// MemoryRepository keeps expenses in process.
type MemoryRepository struct {
	mu       sync.RWMutex
	expenses map[string]Expense
}

// NewMemoryRepository indexes the seed expenses by id.
func NewMemoryRepository(seed []Expense) *MemoryRepository {
	repo := &MemoryRepository{expenses: make(map[string]Expense, len(seed))}
	for _, e := range seed {
		repo.expenses[e.ID] = e
	}
	return repo
}

// List returns expenses matching filter, newest first.
func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Expense, 0, len(r.expenses))
	for _, e := range r.expenses {
		if filter.match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get returns the expense with id.
func (r *MemoryRepository) Get(ctx context.Context, id string) (Expense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.expenses[id]
	if !ok {
		return Expense{}, ErrNotFound
	}
	return e, nil
}

// Insert stores a new expense.
func (r *MemoryRepository) Insert(ctx context.Context, e Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.expenses[e.ID]; exists {
		return fmt.Errorf("expenses: insert %s: %w", e.ID, httpx.ErrDuplicate)
	}
	r.expenses[e.ID] = e
	return nil
}

// UpdateStatus changes the approval status.
func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.expenses[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	r.expenses[id] = e
	return nil
}

// Delete removes the expense.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.expenses[id]; !ok {
		return ErrNotFound
	}
	delete(r.expenses, id)
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

const expenseColumns = `id, category, amount, description, expense_date, supplier_id, status`

func personnelCategoryArgs() []string {
	out := make([]string, 0, len(personnelCategories))
	for _, c := range Categories() {
		if c.Personnel() {
			out = append(out, string(c))
		}
	}
	return out
}

// buildListQuery renders the filtered listing statement.
func buildListQuery(filter Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if filter.Status != "" {
		add("status = ?", string(filter.Status))
	}
	if filter.Category != "" {
		add("category = ?", string(filter.Category))
	}
	if filter.PersonnelOnly {
		add("category = ANY(?)", personnelCategoryArgs())
	}
	sql := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(clauses) > 0 {
		sql += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	return sql + ` ORDER BY expense_date DESC, id`, args
}

// List returns expenses matching filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Expense, error) {
	sql, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("expenses: list: %w", err)
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("expenses: list: %w", err)
	}
	return out, nil
}

// Get returns the expense with id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, ErrNotFound
	}
	return e, err
}

// Insert stores a new expense.
func (r *PostgresRepository) Insert(ctx context.Context, e Expense) error {
	err := r.insert(ctx, e, "")
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("expenses: insert %s: %w", e.ID, httpx.ErrDuplicate)
	}
	return err
}

// Seed inserts expenses that do not exist yet.
func (r *PostgresRepository) Seed(ctx context.Context, seed []Expense) error {
	for _, e := range seed {
		if err := r.insert(ctx, e, ` ON CONFLICT (id) DO NOTHING`); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) insert(ctx context.Context, e Expense, suffix string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO expenses (`+expenseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`+suffix,
		e.ID, string(e.Category), e.Amount, e.Description, e.Date, e.SupplierID, string(e.Status))
	if err != nil {
		return fmt.Errorf("expenses: insert %s: %w", e.ID, err)
	}
	return nil
}

// UpdateStatus changes the approval status.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE expenses SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("expenses: update status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the expense.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("expenses: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExpense(row pgx.Row) (Expense, error) {
	var (
		e                Expense
		category, status string
	)
	if err := row.Scan(&e.ID, &category, &e.Amount, &e.Description, &e.Date, &e.SupplierID, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, err
		}
		return Expense{}, fmt.Errorf("expenses: scan: %w", err)
	}
	e.Category = Category(category)
	e.Status = Status(status)
	return e, nil
}
