package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegate-dev/onegate/domain"
)

func testAuthCode(code string) *domain.AuthCode {
	now := time.Now().UTC()
	return &domain.AuthCode{
		Code:      code,
		ClientID:  "client-1",
		Subject:   "operator-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(domain.AuthCodeTTL),
	}
}

func testRefreshToken(token, rotatedFrom string) *domain.RefreshToken {
	now := time.Now().UTC()
	return &domain.RefreshToken{
		Token:       token,
		ClientID:    "client-1",
		Subject:     "operator-1",
		IssuedAt:    now,
		ExpiresAt:   now.Add(domain.RefreshTokenTTL),
		RotatedFrom: rotatedFrom,
	}
}

func TestCreateClient_Duplicate(t *testing.T) {
	store := NewStore()
	cli := &domain.Client{ID: "client-1", Name: "First"}

	require.NoError(t, store.CreateClient(context.Background(), cli))
	assert.ErrorIs(t, store.CreateClient(context.Background(), cli), domain.ErrClientExists)
}

func TestGetClient_ReturnsCopy(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.CreateClient(context.Background(), &domain.Client{ID: "client-1", Name: "First"}))

	got, err := store.GetClient(context.Background(), "client-1")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := store.GetClient(context.Background(), "client-1")
	require.NoError(t, err)
	assert.Equal(t, "First", again.Name)
}

func TestGetClient_NotFound(t *testing.T) {
	store := NewStore()
	_, err := store.GetClient(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
}

func TestConsumeAuthCode_Single(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveAuthCode(context.Background(), testAuthCode("code-1")))

	got, err := store.ConsumeAuthCode(context.Background(), "code-1")
	require.NoError(t, err)
	assert.True(t, got.Consumed)

	_, err = store.ConsumeAuthCode(context.Background(), "code-1")
	assert.ErrorIs(t, err, domain.ErrAuthCodeNotFound)
}

func TestConsumeAuthCode_Expired(t *testing.T) {
	store := NewStore()
	code := testAuthCode("code-1")
	code.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, store.SaveAuthCode(context.Background(), code))

	_, err := store.ConsumeAuthCode(context.Background(), "code-1")
	assert.ErrorIs(t, err, domain.ErrAuthCodeNotFound)
}

func TestConsumeAuthCode_Concurrent(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveAuthCode(context.Background(), testAuthCode("code-1")))

	const attempts = 32
	var wg sync.WaitGroup
	errors := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConsumeAuthCode(context.Background(), "code-1")
			errors <- err
		}()
	}
	wg.Wait()
	close(errors)

	var winners int
	for err := range errors {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestRevokeRefreshToken_Conditional(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.StoreRefreshToken(context.Background(), testRefreshToken("rt-1", "")))

	require.NoError(t, store.RevokeRefreshToken(context.Background(), "rt-1"))
	assert.ErrorIs(t, store.RevokeRefreshToken(context.Background(), "rt-1"), domain.ErrRefreshTokenRevoked)
	assert.ErrorIs(t, store.RevokeRefreshToken(context.Background(), "missing"), domain.ErrRefreshTokenNotFound)

	// Revoked tokens stay readable so reuse can be recognized.
	got, err := store.GetRefreshToken(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.True(t, got.Revoked)
}

func TestRevokeRefreshToken_Concurrent(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.StoreRefreshToken(context.Background(), testRefreshToken("rt-1", "")))

	const attempts = 32
	var wg sync.WaitGroup
	errors := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errors <- store.RevokeRefreshToken(context.Background(), "rt-1")
		}()
	}
	wg.Wait()
	close(errors)

	var winners int
	for err := range errors {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestRevokeLineage(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	// rt-1 -> rt-2 -> rt-3, plus an unrelated token.
	require.NoError(t, store.StoreRefreshToken(ctx, testRefreshToken("rt-1", "")))
	require.NoError(t, store.StoreRefreshToken(ctx, testRefreshToken("rt-2", "rt-1")))
	require.NoError(t, store.StoreRefreshToken(ctx, testRefreshToken("rt-3", "rt-2")))
	require.NoError(t, store.StoreRefreshToken(ctx, testRefreshToken("other", "")))

	require.NoError(t, store.RevokeLineage(ctx, "rt-1"))

	for _, token := range []string{"rt-1", "rt-2", "rt-3"} {
		got, err := store.GetRefreshToken(ctx, token)
		require.NoError(t, err)
		assert.True(t, got.Revoked, "%s should be revoked", token)
	}

	other, err := store.GetRefreshToken(ctx, "other")
	require.NoError(t, err)
	assert.False(t, other.Revoked)
}

func TestEnsureUser_Upsert(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.EnsureUser(ctx, &domain.User{Email: "op@example.com", PasswordHash: "hash-1"}))
	require.NoError(t, store.EnsureUser(ctx, &domain.User{Email: "op@example.com", PasswordHash: "hash-2"}))

	user, err := store.GetUserByEmail(ctx, "op@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", user.PasswordHash)

	_, err = store.GetUserByEmail(ctx, "other@example.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
