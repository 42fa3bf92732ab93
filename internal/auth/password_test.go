package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptPasswordHasher(t *testing.T) {
	hasher := NewBcryptPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, hasher.Verify(hash, "hunter2"))
	assert.Error(t, hasher.Verify(hash, "hunter3"))
	assert.Error(t, hasher.Verify("", "hunter2"))
}

func TestBcryptPasswordHasher_DistinctSalts(t *testing.T) {
	hasher := NewBcryptPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("same password")
	require.NoError(t, err)
	second, err := hasher.Hash("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
