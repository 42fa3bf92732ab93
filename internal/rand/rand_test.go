package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerators(t *testing.T) {
	generators := map[string]func() (string, error){
		"client id":     NewClientID,
		"client secret": NewClientSecret,
		"auth code":     NewAuthCode,
		"refresh token": NewRefreshToken,
	}

	for name, generate := range generators {
		t.Run(name, func(t *testing.T) {
			seen := make(map[string]bool)
			for i := 0; i < 100; i++ {
				value, err := generate()
				require.NoError(t, err)
				assert.GreaterOrEqual(t, len(value), 32, "%s should carry at least 192 bits", name)
				assert.False(t, seen[value], "%s values must not repeat", name)
				seen[value] = true
			}
		})
	}
}
