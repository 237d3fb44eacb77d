// Package cache keeps short-lived derived state: ranked interest per session
// and the unsaved topic draft left behind by a failed save.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pulse/api/internal/interest"
	"pulse/api/internal/reconcile"
)

// RedisStore implements the interest cache and draft stash on redis.
type RedisStore struct {
	client      *redis.Client
	prefix      string
	interestTTL time.Duration
	draftTTL    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, interestTTL, draftTTL time.Duration) (*RedisStore, error) {
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

	return NewRedisStoreWithClient(client, interestTTL, draftTTL), nil
}

// NewRedisStoreWithClient creates a store from an existing redis client.
func NewRedisStoreWithClient(client *redis.Client, interestTTL, draftTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:      client,
		prefix:      "pulse:",
		interestTTL: interestTTL,
		draftTTL:    draftTTL,
	}
}

func (s *RedisStore) interestKey(sessionID string) string {
	return s.prefix + "interest:" + sessionID
}

func (s *RedisStore) draftKey(sessionID string) string {
	return s.prefix + "draft:" + sessionID
}

// GetInterest returns the cached ranking; ok is false on a miss.
func (s *RedisStore) GetInterest(ctx context.Context, sessionID string) ([]interest.Tally, bool, error) {
	var tallies []interest.Tally
	ok, err := s.getJSON(ctx, s.interestKey(sessionID), &tallies)
	if err != nil {
		return nil, false, fmt.Errorf("get interest: %w", err)
	}
	return tallies, ok, nil
}

func (s *RedisStore) SetInterest(ctx context.Context, sessionID string, tallies []interest.Tally) error {
	if err := s.setJSON(ctx, s.interestKey(sessionID), tallies, s.interestTTL); err != nil {
		return fmt.Errorf("set interest: %w", err)
	}
	return nil
}

func (s *RedisStore) InvalidateInterest(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.interestKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("invalidate interest: %w", err)
	}
	return nil
}

// SaveDraft stashes an edited topic list until it is saved or expires.
func (s *RedisStore) SaveDraft(ctx context.Context, sessionID string, edits []reconcile.Edit) error {
	if err := s.setJSON(ctx, s.draftKey(sessionID), edits, s.draftTTL); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadDraft(ctx context.Context, sessionID string) ([]reconcile.Edit, bool, error) {
	var edits []reconcile.Edit
	ok, err := s.getJSON(ctx, s.draftKey(sessionID), &edits)
	if err != nil {
		return nil, false, fmt.Errorf("load draft: %w", err)
	}
	return edits, ok, nil
}

func (s *RedisStore) ClearDraft(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.draftKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}

// Close closes the redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
