package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPending() *PendingAuthorization {
	now := time.Now().UTC()
	return &PendingAuthorization{
		ID:          uuid.NewString(),
		ClientID:    "client-1",
		ClientName:  "Test Client",
		RedirectURI: "https://app.example.com/callback",
		Scope:       "read",
		Status:      StatusReceived,
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	pending := testPending()
	require.NoError(t, store.SaveFlow(context.Background(), pending))

	got, err := store.GetFlow(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ClientID, got.ClientID)

	_, err = store.GetFlow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	pending := testPending()
	require.NoError(t, store.SaveFlow(context.Background(), pending))

	pending.Status = StatusDenied

	first, err := store.GetFlow(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, first.Status)

	first.Status = StatusAwaitingDecision

	second, err := store.GetFlow(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, second.Status)
}

func TestMemoryStore_UpdateFlow(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	pending := testPending()
	require.NoError(t, store.SaveFlow(context.Background(), pending))

	pending.Status = StatusAwaitingDecision
	require.NoError(t, store.UpdateFlow(context.Background(), pending))

	got, err := store.GetFlow(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAwaitingDecision, got.Status)

	assert.ErrorIs(t, store.UpdateFlow(context.Background(), testPending()), ErrFlowNotFound)
}

func TestMemoryStore_ClaimOnce(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	pending := testPending()
	require.NoError(t, store.SaveFlow(context.Background(), pending))

	got, err := store.ClaimFlow(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)

	_, err = store.ClaimFlow(context.Background(), pending.ID)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestMemoryStore_ClaimConcurrent(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	pending := testPending()
	require.NoError(t, store.SaveFlow(context.Background(), pending))

	const attempts = 16
	var wg sync.WaitGroup
	errors := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ClaimFlow(context.Background(), pending.ID)
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

func TestMemoryStore_Expired(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	pending := testPending()
	pending.ExpiresAt = time.Now().Add(50 * time.Millisecond)
	require.NoError(t, store.SaveFlow(context.Background(), pending))

	time.Sleep(80 * time.Millisecond)

	_, err := store.GetFlow(context.Background(), pending.ID)
	assert.Error(t, err)
}
