package flow

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStore keeps pending authorizations in a ttlcache. Suitable for a
// single-instance deployment; use the redis store when consent may be
// recorded by a different instance than the one that received the request.
type MemoryStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, *PendingAuthorization]
}

// NewMemoryStore creates a new in-memory pending-authorization store with
// automatic cleanup of expired entries.
func NewMemoryStore() *MemoryStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, *PendingAuthorization](),
	)
	go cache.Start()

	return &MemoryStore{cache: cache}
}

// SaveFlow implements Store.SaveFlow.
func (s *MemoryStore) SaveFlow(_ context.Context, pending *PendingAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *pending
	s.cache.Set(pending.ID, &stored, time.Until(pending.ExpiresAt))
	return nil
}

// GetFlow implements Store.GetFlow.
func (s *MemoryStore) GetFlow(_ context.Context, id string) (*PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return nil, ErrFlowNotFound
	}

	pending := *item.Value()
	if time.Now().After(pending.ExpiresAt) {
		return nil, ErrFlowExpired
	}
	return &pending, nil
}

// UpdateFlow implements Store.UpdateFlow.
func (s *MemoryStore) UpdateFlow(_ context.Context, pending *PendingAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache.Get(pending.ID) == nil {
		return ErrFlowNotFound
	}
	stored := *pending
	s.cache.Set(pending.ID, &stored, time.Until(pending.ExpiresAt))
	return nil
}

// ClaimFlow implements Store.ClaimFlow. The get-and-delete runs under the
// store lock, so only one concurrent decision can claim a request.
func (s *MemoryStore) ClaimFlow(_ context.Context, id string) (*PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(id)
	if item == nil {
		return nil, ErrFlowNotFound
	}
	s.cache.Delete(id)

	pending := *item.Value()
	if time.Now().After(pending.ExpiresAt) {
		return nil, ErrFlowExpired
	}
	return &pending, nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}

var _ Store = (*MemoryStore)(nil)
