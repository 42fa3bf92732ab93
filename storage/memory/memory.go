// Package memory provides an in-memory credential store. It backs tests and
// single-binary development deployments; durable deployments use the mongodb
// package. The conditional updates run under the store's write lock, which
// gives the same exactly-one-winner guarantee the MongoDB implementation gets
// from FindOneAndUpdate.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/onegate-dev/onegate/domain"
)

// Store is a mutex-guarded implementation of the credential repositories.
type Store struct {
	mu      sync.RWMutex
	clients map[string]*domain.Client
	codes   map[string]*domain.AuthCode
	refresh map[string]*domain.RefreshToken
	users   map[string]*domain.User // keyed by email
}

// NewStore creates an empty in-memory credential store.
func NewStore() *Store {
	return &Store{
		clients: make(map[string]*domain.Client),
		codes:   make(map[string]*domain.AuthCode),
		refresh: make(map[string]*domain.RefreshToken),
		users:   make(map[string]*domain.User),
	}
}

// CreateClient implements domain.ClientRepository.
func (s *Store) CreateClient(_ context.Context, client *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.clients[client.ID]; exists {
		return domain.ErrClientExists
	}
	clientCopy := *client
	s.clients[client.ID] = &clientCopy
	return nil
}

// GetClient implements domain.ClientRepository.
func (s *Store) GetClient(_ context.Context, clientID string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return nil, domain.ErrClientNotFound
	}
	clientCopy := *client
	return &clientCopy, nil
}

// SaveAuthCode implements domain.AuthCodeRepository.
func (s *Store) SaveAuthCode(_ context.Context, code *domain.AuthCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codeCopy := *code
	s.codes[code.Code] = &codeCopy
	return nil
}

// ConsumeAuthCode implements domain.AuthCodeRepository. The check-and-set
// happens under the write lock: exactly one concurrent redemption observes
// the unconsumed code.
func (s *Store) ConsumeAuthCode(_ context.Context, code string) (*domain.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.codes[code]
	if !ok || stored.Consumed || stored.Expired(time.Now()) {
		return nil, domain.ErrAuthCodeNotFound
	}

	stored.Consumed = true
	codeCopy := *stored
	return &codeCopy, nil
}

// StoreRefreshToken implements domain.RefreshTokenRepository.
func (s *Store) StoreRefreshToken(_ context.Context, token *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokenCopy := *token
	s.refresh[token.Token] = &tokenCopy
	return nil
}

// GetRefreshToken implements domain.RefreshTokenRepository. Revoked tokens
// are returned as-is so the issuer can recognize reuse.
func (s *Store) GetRefreshToken(_ context.Context, token string) (*domain.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.refresh[token]
	if !ok {
		return nil, domain.ErrRefreshTokenNotFound
	}
	tokenCopy := *stored
	return &tokenCopy, nil
}

// RevokeRefreshToken implements domain.RefreshTokenRepository. Exactly one
// concurrent caller flips the flag; the rest get ErrRefreshTokenRevoked.
func (s *Store) RevokeRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.refresh[token]
	if !ok {
		return domain.ErrRefreshTokenNotFound
	}
	if stored.Revoked {
		return domain.ErrRefreshTokenRevoked
	}
	stored.Revoked = true
	return nil
}

// RevokeLineage implements domain.RefreshTokenRepository, walking the
// rotation chain forward from the given token.
func (s *Store) RevokeLineage(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.refresh[token]; ok {
		stored.Revoked = true
	}

	current := token
	for current != "" {
		next := ""
		for _, stored := range s.refresh {
			if stored.RotatedFrom == current {
				stored.Revoked = true
				next = stored.Token
				break
			}
		}
		current = next
	}
	return nil
}

// EnsureUser implements domain.UserRepository.
func (s *Store) EnsureUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userCopy := *user
	if userCopy.ID == "" {
		userCopy.ID = user.Email
	}
	s.users[user.Email] = &userCopy
	return nil
}

// GetUserByEmail implements domain.UserRepository.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

var (
	_ domain.ClientRepository       = (*Store)(nil)
	_ domain.AuthCodeRepository     = (*Store)(nil)
	_ domain.RefreshTokenRepository = (*Store)(nil)
	_ domain.UserRepository         = (*Store)(nil)
)
