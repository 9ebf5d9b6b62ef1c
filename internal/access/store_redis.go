package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the matrix as a plain string key without expiry.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore builds a RedisStore; an empty key selects DefaultStoreKey.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultStoreKey
	}
	return &RedisStore{client: client, key: key}
}

// Load fetches the stored matrix text.
func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("access: redis load: %w", err)
	}
	return data, nil
}

// Save writes the matrix text.
func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("access: redis save: %w", err)
	}
	return nil
}
