package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps pending authorizations in Redis so the consent decision
// can be recorded by a different instance than the one that received the
// authorization request.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new [RedisStore] instance.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) redisKey(id string) string {
	return fmt.Sprintf("%s:flow:%s", s.prefix, id)
}

// SaveFlow implements Store.SaveFlow. The key's TTL is the request's window.
func (s *RedisStore) SaveFlow(ctx context.Context, pending *PendingAuthorization) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending authorization: %w", err)
	}

	ttl := time.Until(pending.ExpiresAt)
	if ttl <= 0 {
		return ErrFlowExpired
	}

	if err := s.client.Set(ctx, s.redisKey(pending.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pending authorization: %w", err)
	}
	return nil
}

// GetFlow implements Store.GetFlow.
func (s *RedisStore) GetFlow(ctx context.Context, id string) (*PendingAuthorization, error) {
	payload, err := s.client.Get(ctx, s.redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending authorization: %w", err)
	}

	return s.decode(payload)
}

// UpdateFlow implements Store.UpdateFlow, keeping the original TTL.
func (s *RedisStore) UpdateFlow(ctx context.Context, pending *PendingAuthorization) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending authorization: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.redisKey(pending.ID), payload, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to update pending authorization: %w", err)
	}
	if !ok {
		return ErrFlowNotFound
	}
	return nil
}

// ClaimFlow implements Store.ClaimFlow. GETDEL makes the claim atomic: only
// one concurrent decision observes the stored request.
func (s *RedisStore) ClaimFlow(ctx context.Context, id string) (*PendingAuthorization, error) {
	payload, err := s.client.GetDel(ctx, s.redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending authorization: %w", err)
	}

	return s.decode(payload)
}

func (s *RedisStore) decode(payload []byte) (*PendingAuthorization, error) {
	var pending PendingAuthorization
	if err := json.Unmarshal(payload, &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending authorization: %w", err)
	}
	if time.Now().After(pending.ExpiresAt) {
		return nil, ErrFlowExpired
	}
	return &pending, nil
}

var _ Store = (*RedisStore)(nil)
