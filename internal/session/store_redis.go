// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/letsworkapps/authportal/internal/platform/constants"
)

// RedisStore keeps sessions in Redis under [constants.RedisPrefixSession],
// relying on key expiry for cleanup.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis implementation of [Store].
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load implements [Store].
func (store *RedisStore) Load(context context.Context, id string) ([]byte, error) {
	payload, err := store.client.Get(context, constants.RedisPrefixSession+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis_session_store_load_failed: %w", err)
	}
	return payload, nil
}

// Save implements [Store].
func (store *RedisStore) Save(context context.Context, id string, payload []byte, ttl time.Duration) error {
	if err := store.client.Set(context, constants.RedisPrefixSession+id, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_store_save_failed: %w", err)
	}
	return nil
}

// Delete implements [Store].
func (store *RedisStore) Delete(context context.Context, id string) error {
	if err := store.client.Del(context, constants.RedisPrefixSession+id).Err(); err != nil {
		return fmt.Errorf("redis_session_store_delete_failed: %w", err)
	}
	return nil
}

// Ping implements [Store].
func (store *RedisStore) Ping(context context.Context) error {
	if err := store.client.Ping(context).Err(); err != nil {
		return fmt.Errorf("redis_session_store_ping_failed: %w", err)
	}
	return nil
}
