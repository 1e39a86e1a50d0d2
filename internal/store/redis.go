package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashureev/skill-accelerator/internal/domain"
)

const redisKeyPrefix = "skillacc:"

// RedisStore implements Repository on Redis hashes: one hash per user
// record and one hash holding all of a user's state entries.
type RedisStore struct {
	client *redis.Client
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func userKey(userID string) string  { return redisKeyPrefix + "user:" + userID }
func stateKey(userID string) string { return redisKeyPrefix + "state:" + userID }

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetUser retrieves a user by their user ID.
func (s *RedisStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	fields, err := s.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	user := &domain.User{UserID: userID, DisplayName: fields["display_name"]}
	user.LastSeenAt = unixField(fields, "last_seen_at")
	user.CreatedAt = unixField(fields, "created_at")
	user.UpdatedAt = unixField(fields, "updated_at")
	return user, nil
}

func unixField(fields map[string]string, name string) time.Time {
	n, err := strconv.ParseInt(fields[name], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0)
}

// UpsertUser creates or updates a user record. created_at is only set once.
func (s *RedisStore) UpsertUser(ctx context.Context, user *domain.User) error {
	key := userKey(user.UserID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"display_name", user.DisplayName,
			"last_seen_at", user.LastSeenAt.Unix(),
			"updated_at", user.UpdatedAt.Unix(),
		)
		pipe.HSetNX(ctx, key, "created_at", user.CreatedAt.Unix())
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for an existing user.
func (s *RedisStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	key := userKey(userID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	if exists == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, key,
		"last_seen_at", lastSeen.Unix(),
		"updated_at", time.Now().Unix(),
	).Err(); err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	return nil
}

// GetState reads one per-user entry.
func (s *RedisStore) GetState(ctx context.Context, userID, key string) (string, bool, error) {
	value, err := s.client.HGet(ctx, stateKey(userID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %s: %w", key, err)
	}
	return value, true, nil
}

// PutState creates or replaces one per-user entry.
func (s *RedisStore) PutState(ctx context.Context, userID, key, value string) error {
	if err := s.client.HSet(ctx, stateKey(userID), key, value).Err(); err != nil {
		return fmt.Errorf("put state %s: %w", key, err)
	}
	return nil
}

// DeleteState removes one per-user entry.
func (s *RedisStore) DeleteState(ctx context.Context, userID, key string) error {
	if err := s.client.HDel(ctx, stateKey(userID), key).Err(); err != nil {
		return fmt.Errorf("delete state %s: %w", key, err)
	}
	return nil
}

// DeleteAllState removes every entry for a user.
func (s *RedisStore) DeleteAllState(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete all state: %w", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

var (
	_ Repository = (*SQLiteStore)(nil)
	_ Repository = (*RedisStore)(nil)
)
