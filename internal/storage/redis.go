package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix is prepended to every key (default "inboxtriage:").
	KeyPrefix string
}

// RedisStore keeps each document as a single string value. SET replaces the
// value atomically, so readers never observe a partial write.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects a go-redis client using cfg.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required for the redis storage backend")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "inboxtriage:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Key returns the Redis key used for a document key.
func (s *RedisStore) Key(key string) string {
	return s.prefix + key
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Load reads and decodes the document stored under key.
func (s *RedisStore) Load(ctx context.Context, key string, v interface{}) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	data, err := s.client.Get(ctx, s.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &MissingResourceError{Key: key}
		}
		return fmt.Errorf("failed to read %s from redis: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// Save replaces the document stored under key.
func (s *RedisStore) Save(ctx context.Context, key string, v interface{}) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := s.client.Set(ctx, s.Key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", key, err)
	}
	return nil
}
