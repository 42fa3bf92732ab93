// Package rand generates the opaque credential values handed to clients.
// Everything here comes from crypto/rand; the encodings are URL-safe so the
// values survive redirect query strings and form bodies unescaped.
package rand

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	clientIDBytes     = 24 // 192 bits
	clientSecretBytes = 32 // 256 bits
	authCodeBytes     = 32 // 256 bits
	refreshTokenBytes = 32 // 256 bits
)

func randomURLSafe(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewClientID returns an opaque client identifier.
func NewClientID() (string, error) {
	return randomURLSafe(clientIDBytes)
}

// NewClientSecret returns a plaintext client secret. Only its hash is ever
// persisted.
func NewClientSecret() (string, error) {
	return randomURLSafe(clientSecretBytes)
}

// NewAuthCode returns a single-use authorization code value.
func NewAuthCode() (string, error) {
	return randomURLSafe(authCodeBytes)
}

// NewRefreshToken returns a refresh token value.
func NewRefreshToken() (string, error) {
	return randomURLSafe(refreshTokenBytes)
}
