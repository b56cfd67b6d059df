package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMappingStore implements MappingStore using Redis. Suitable for
// deployments where the API process and the sync drivers run separately and
// need to share invalidations.
type RedisMappingStore struct {
	client *redis.Client
}

var _ MappingStore = (*RedisMappingStore)(nil)

// RedisOptions holds Redis connection configuration
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisMappingStore connects to Redis and verifies the connection
func NewRedisMappingStore(opts RedisOptions) (*RedisMappingStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisMappingStore{client: client}, nil
}

// NewRedisMappingStoreWithClient wraps an existing Redis client. Useful for
// testing or when sharing a client across components.
func NewRedisMappingStoreWithClient(client *redis.Client) *RedisMappingStore {
	return &RedisMappingStore{client: client}
}

// Get implements MappingStore
func (s *RedisMappingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements MappingStore
func (s *RedisMappingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Delete implements MappingStore
func (s *RedisMappingStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// Close closes the Redis client
func (s *RedisMappingStore) Close() error {
	return s.client.Close()
}
