package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStateStore backs the refresh-token allow-list in multi-instance
// deployments, where a logout on one node must invalidate the token
// everywhere.
type redisStateStore struct {
	client *redis.Client
}

var _ StateStore = (*redisStateStore)(nil)

func NewRedisStateStore(client *redis.Client) StateStore {
	return &redisStateStore{client: client}
}

func (s *redisStateStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Get reports a missing key as (nil, nil), matching the memory store, so
// the auth service distinguishes a revoked token from a Redis outage.
func (s *redisStateStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

func (s *redisStateStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *redisStateStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}
