package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisListStore implements ListStore over github.com/redis/go-redis/v9,
// grounded on the go-redis/v9 client conventions used throughout
// custodia-labs-sercha-core's queue and session-store adapters.
type RedisListStore struct {
	client *redis.Client
}

// NewRedisListStore wraps an already-configured *redis.Client.
func NewRedisListStore(client *redis.Client) *RedisListStore {
	return &RedisListStore{client: client}
}

func (s *RedisListStore) LPush(ctx context.Context, key string, value []byte) error {
	if err := s.client.LPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return nil
}

func (s *RedisListStore) RPush(ctx context.Context, key string, value []byte) error {
	if err := s.client.RPush(ctx, key, value).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", key, err)
	}
	return nil
}

func (s *RedisListStore) LPop(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.LPop(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lpop %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisListStore) RPop(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.RPop(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("rpop %s: %w", key, err)
	}
	return value, true, nil
}

func (s *RedisListStore) LLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", key, err)
	}
	return n, nil
}

func (s *RedisListStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", pattern, err)
	}
	return keys, nil
}

func (s *RedisListStore) LIndex(ctx context.Context, key string, index int64) ([]byte, bool, error) {
	value, err := s.client.LIndex(ctx, key, index).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lindex %s: %w", key, err)
	}
	return value, true, nil
}
