package cart

import (
	"context"
	"errors"
	"time"

	pkgredis "github.com/velmora/unicart/pkg/redis"
)

// RedisStorage persists guest carts in Redis under namespaced per-device keys.
type RedisStorage struct {
	client *pkgredis.Client
}

// NewRedisStorage wraps the shared Redis client as a cart storage backend.
func NewRedisStorage(client *pkgredis.Client) (*RedisStorage, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisStorage{client: client}, nil
}

func (s *RedisStorage) Read(ctx context.Context, deviceID string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.client.GuestCartKey(deviceID))
	if err != nil {
		if errors.Is(err, pkgredis.ErrKeyMissing) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}

func (s *RedisStorage) Write(ctx context.Context, deviceID string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.client.GuestCartKey(deviceID), payload, ttl)
}

func (s *RedisStorage) Delete(ctx context.Context, deviceID string) error {
	return s.client.Del(ctx, s.client.GuestCartKey(deviceID))
}
