package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("OPERATOR_PASSWORD", "hunter2")
	t.Setenv("SIGNING_KEY_FILE", "/etc/onegate/signing.pem")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REFRESH_REUSE_REVOKES_LINEAGE", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "hunter2", cfg.OperatorPassword)
	assert.Equal(t, "/etc/onegate/signing.pem", cfg.SigningKeyFile)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.RefreshReuseRevokesLineage)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("OPERATOR_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.Storage)
	assert.Empty(t, cfg.RedisAddr)
	assert.False(t, cfg.RefreshReuseRevokesLineage)
}

func TestLoadConfig_MissingOperatorCredential(t *testing.T) {
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPERATOR_PASSWORD")
}

func TestLoadConfig_RejectsUnknownStorage(t *testing.T) {
	t.Setenv("OPERATOR_PASSWORD", "hunter2")
	t.Setenv("STORAGE", "cassandra")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE")
}
