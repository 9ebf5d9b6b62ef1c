package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// settingsQuerier is the subset of pgxpool.Pool used by PostgresStore.
type settingsQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore persists the matrix in the app_settings key/value table.
type PostgresStore struct {
	db  settingsQuerier
	key string
}

// NewPostgresStore builds a PostgresStore; an empty key selects DefaultStoreKey.
func NewPostgresStore(db settingsQuerier, key string) *PostgresStore {
	if key == "" {
		key = DefaultStoreKey
	}
	return &PostgresStore{db: db, key: key}
}

// Load reads the stored matrix text.
func (s *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, s.key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("access: postgres load: %w", err)
	}
	return []byte(value), nil
}

// Save upserts the matrix text.
func (s *PostgresStore) Save(ctx context.Context, data []byte) error {
	_, err := s.db.Exec(ctx, `INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, s.key, string(data))
	if err != nil {
		return fmt.Errorf("access: postgres save: %w", err)
	}
	return nil
}
