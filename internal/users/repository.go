package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/minedor/minedor/internal/access"
)

// Repository defines data access methods for users.
type Repository interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
}

// MemoryRepository serves a fixed set of users from memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryRepository indexes the given users by id.
func NewMemoryRepository(seed []User) *MemoryRepository {
	repo := &MemoryRepository{users: make(map[string]User, len(seed))}
	for _, u := range seed {
		repo.users[u.ID] = u
	}
	return repo
}

// FindByID returns the user with id.
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// FindByEmail matches the email case-insensitively.
func (r *MemoryRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// List returns users ordered by id.
func (r *MemoryRepository) List(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository provides PostgreSQL backed persistence.
type PostgresRepository struct {
	pool querier
}

// NewPostgresRepository constructs a repository.
func NewPostgresRepository(pool querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `id, name, email, role, team, password_hash, active`

// FindByID returns the user with id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail matches the email case-insensitively.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// List returns users ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return out, nil
}

// Seed inserts users that do not exist yet, leaving existing rows untouched.
func (r *PostgresRepository) Seed(ctx context.Context, seed []User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, u := range seed {
			_, err := tx.Exec(ctx, `INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING`,
				u.ID, u.Name, u.Email, string(u.Role), string(u.Team), u.PasswordHash, u.Active)
			if err != nil {
				return fmt.Errorf("users: seed %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

func (r *PostgresRepository) queryOne(ctx context.Context, sql string, arg string) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, sql, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u          User
		role, team string
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &role, &team, &u.PasswordHash, &u.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("users: scan: %w", err)
	}
	parsed, err := access.ParseRole(role)
	if err != nil {
		return User{}, fmt.Errorf("users: user %s: %w", u.ID, err)
	}
	u.Role = parsed
	u.Team = Team(team)
	return u, nil
}
