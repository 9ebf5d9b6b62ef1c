package timetracking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/minedor/minedor/internal/platform/httpx"
)

// Repository defines data access methods for clock-in sessions.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]Session, error)
	Get(ctx context.Context, id string) (Session, error)
	// Open returns the session of userID that has no departure yet.
	Open(ctx context.Context, userID string) (Session, error)
	// Insert stores s and fails with ErrAlreadyClockedIn when the user
	// already has an open session.
	Insert(ctx context.Context, s Session) error
	Close(ctx context.Context, id string, leftAt time.Time, workedMinutes int) error
	Delete(ctx context.Context, id string) error
}

// sortSessions orders latest arrival first, ties broken by id.
func sortSessions(list []Session) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].ArrivedAt.Equal(list[j].ArrivedAt) {
			return list[i].ArrivedAt.After(list[j].ArrivedAt)
		}
		return list[i].ID < list[j].ID
	})
}

// MemoryRepository keeps sessions in process.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryRepository indexes the seed sessions by id.
func NewMemoryRepository(seed []Session) *MemoryRepository {
	repo := &MemoryRepository{sessions: make(map[string]Session, len(seed))}
	for _, s := range seed {
		repo.sessions[s.ID] = s
	}
	return repo
}

// List returns sessions matching filter.
func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if filter.Day != "" && s.Day != filter.Day {
			continue
		}
		if filter.UserID != "" && s.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, s)
	}
	sortSessions(out)
	return out, nil
}

// Get returns the session with id.
func (r *MemoryRepository) Get(ctx context.Context, id string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// Open returns the open session of userID.
func (r *MemoryRepository) Open(ctx context.Context, userID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.openLocked(userID)
}

func (r *MemoryRepository) openLocked(userID string) (Session, error) {
	for _, s := range r.sessions {
		if s.UserID == userID && s.Open() {
			return s, nil
		}
	}
	return Session{}, ErrNotFound
}

// Insert stores a new session.
func (r *MemoryRepository) Insert(ctx context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.openLocked(s.UserID); err == nil {
		return ErrAlreadyClockedIn
	}
	if _, exists := r.sessions[s.ID]; exists {
		return fmt.Errorf("timetracking: insert %s: %w", s.ID, httpx.ErrDuplicate)
	}
	r.sessions[s.ID] = s
	return nil
}

// Close records the departure of an open session.
func (r *MemoryRepository) Close(ctx context.Context, id string, leftAt time.Time, workedMinutes int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || !s.Open() {
		return ErrNotFound
	}
	s.LeftAt = &leftAt
	s.Status = StatusDeparted
	s.WorkedMinutes = workedMinutes
	r.sessions[id] = s
	return nil
}

// Delete removes the session.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository provides PostgreSQL backed persistence. A partial unique
// index on user_id where left_at is null enforces one open session per user.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository constructs a repository on a pool or transaction.
func NewPostgresRepository(db querier) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, work_day, arrived_at, left_at, late, status, worked_minutes, note`

func buildListQuery(filter Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Day != "" {
		args = append(args, filter.Day)
		where = append(where, "work_day = $"+strconv.Itoa(len(args))+"::date")
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, "user_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	sql := `SELECT ` + sessionColumns + ` FROM time_sessions`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	return sql + ` ORDER BY arrived_at DESC, id`, args
}

// List returns sessions matching filter.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]Session, error) {
	sql, args := buildListQuery(filter)
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("timetracking: list: %w", err)
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("timetracking: list: %w", err)
	}
	return out, nil
}

// Get returns the session with id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM time_sessions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

// Open returns the open session of userID.
func (r *PostgresRepository) Open(ctx context.Context, userID string) (Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM time_sessions WHERE user_id = $1 AND left_at IS NULL`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

// Insert stores a new session.
func (r *PostgresRepository) Insert(ctx context.Context, s Session) error {
	_, err := r.db.Exec(ctx, `INSERT INTO time_sessions (`+sessionColumns+`) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.Day, s.ArrivedAt, s.LeftAt, s.Late, string(s.Status), s.WorkedMinutes, s.Note)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyClockedIn
		}
		return fmt.Errorf("timetracking: insert %s: %w", s.ID, err)
	}
	return nil
}

// Close records the departure of an open session.
func (r *PostgresRepository) Close(ctx context.Context, id string, leftAt time.Time, workedMinutes int) error {
	tag, err := r.db.Exec(ctx, `UPDATE time_sessions SET left_at = $2, status = $3, worked_minutes = $4 WHERE id = $1 AND left_at IS NULL`,
		id, leftAt, string(StatusDeparted), workedMinutes)
	if err != nil {
		return fmt.Errorf("timetracking: close %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the session.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM time_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("timetracking: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Seed inserts sessions that do not exist yet.
func (r *PostgresRepository) Seed(ctx context.Context, seed []Session) error {
	for _, s := range seed {
		_, err := r.db.Exec(ctx, `INSERT INTO time_sessions (`+sessionColumns+`) VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9) ON CONFLICT DO NOTHING`,
			s.ID, s.UserID, s.Day, s.ArrivedAt, s.LeftAt, s.Late, string(s.Status), s.WorkedMinutes, s.Note)
		if err != nil {
			return fmt.Errorf("timetracking: seed %s: %w", s.ID, err)
		}
	}
	return nil
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		s      Session
		day    time.Time
		status string
	)
	if err := row.Scan(&s.ID, &s.UserID, &day, &s.ArrivedAt, &s.LeftAt, &s.Late, &status, &s.WorkedMinutes, &s.Note); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("timetracking: scan: %w", err)
	}
	s.Day = day.Format(time.DateOnly)
	s.Status = Status(status)
	return s, nil
}
