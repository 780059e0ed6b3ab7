package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the persisted state in Redis under a key prefix.
// Used when several relay instances share one client state.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis at the given URL and verifies the
// connection before returning.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: "brickfolio:"}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "brickfolio:"}
}

func (s *RedisStore) tokenKey() string {
	return s.prefix + "token"
}

func (s *RedisStore) savedKey() string {
	return s.prefix + "saved_list_ids"
}

// Token returns the persisted bearer token, or "" when none is stored.
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	val, err := s.client.Get(ctx, s.tokenKey()).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return val, nil
}

// SetToken stores token; an empty token deletes the entry.
func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		if err := s.client.Del(ctx, s.tokenKey()).Err(); err != nil {
			return fmt.Errorf("clear token: %w", err)
		}
		return nil
	}
	if err := s.client.Set(ctx, s.tokenKey(), token, 0).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// SavedListIDs returns the bookmarked list IDs, deduplicated.
func (s *RedisStore) SavedListIDs(ctx context.Context) ([]string, error) {
	raw, err := s.client.Get(ctx, s.savedKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read saved lists: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		// Corrupt entry reads as empty rather than failing the caller.
		return nil, nil
	}
	return uniqIDs(ids), nil
}

// SetSavedListIDs replaces the bookmarked list IDs.
func (s *RedisStore) SetSavedListIDs(ctx context.Context, ids []string) error {
	data, err := json.Marshal(uniqIDs(ids))
	if err != nil {
		return fmt.Errorf("marshal saved lists: %w", err)
	}
	if err := s.client.Set(ctx, s.savedKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("save saved lists: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
