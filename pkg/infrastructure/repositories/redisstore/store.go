package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vsinha/requisition/pkg/domain/repositories"
)

// Options configures a Redis-backed store
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store is a KeyValueStore backed by plain Redis string keys
type Store struct {
	client redis.Cmdable
	prefix string
}

// Verify interface compliance
var _ repositories.KeyValueStore = (*Store)(nil)

// Open creates a client for opts and checks the connection
func Open(ctx context.Context, opts Options) (*Store, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis unavailable at %s: %w", opts.Addr, err)
	}
	return New(client, opts.Prefix), client, nil
}

// New wraps an existing client
func New(client redis.Cmdable, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Get returns the value for key, or repositories.ErrNotFound
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key without expiry
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.prefix+key, string(value), 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
