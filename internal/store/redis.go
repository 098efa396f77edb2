package store

import (
	"context"
	"errors"
	"fmt"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/redis/go-redis/v9"
)

var _ CartStore = (*RedisStore)(nil)

// RedisStore implements CartStore on a redis string key, letting several
// storefront processes share one cart.
type RedisStore struct {
	client redis.Cmdable
	key    string
}

// NewRedisStore stores the cart under key.
func NewRedisStore(client redis.Cmdable, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Load returns ErrCartNotFound when the key is absent.
func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storeerrors.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to read cart from redis: %w", err)
	}
	return data, nil
}

// Save overwrites the key without expiry.
func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cart to redis: %w", err)
	}
	return nil
}
