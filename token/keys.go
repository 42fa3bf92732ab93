package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/google/uuid"
)

// SigningKey holds the asymmetric keypair used to sign and verify access
// tokens. It is constructed exactly once at process start and passed by
// reference to the Issuer and Validator; it is never re-assigned afterwards.
// Key rotation is out of scope: the process lifetime is the key lifetime.
type SigningKey struct {
	key   *rsa.PrivateKey
	keyID string
}

// LoadSigningKey reads an RSA private key from a PEM file.
// Both PKCS#1 and PKCS#8 encodings are accepted.
func LoadSigningKey(path string) (*SigningKey, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key file: %w", err)
	}

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("signing key file contains no PEM block")
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#1 key: %w", err)
		}
	case "PRIVATE KEY":
		parsed, parseErr := x509.ParsePKCS8PrivateKey(block.Bytes)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 key: %w", parseErr)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("signing key is not an RSA key")
		}
		key = rsaKey
	default:
		return nil, fmt.Errorf("unsupported PEM block type %q", block.Type)
	}

	return &SigningKey{key: key, keyID: uuid.NewString()}, nil
}

// GenerateSigningKey creates an ephemeral 2048-bit RSA keypair. Tokens signed
// with it do not survive a restart, so this is only suitable for development
// and tests.
func GenerateSigningKey() (*SigningKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return &SigningKey{key: key, keyID: uuid.NewString()}, nil
}

// KeyID returns the identifier embedded in the kid header of signed tokens.
func (s *SigningKey) KeyID() string {
	return s.keyID
}

// Public returns the verification half of the keypair.
func (s *SigningKey) Public() *rsa.PublicKey {
	return &s.key.PublicKey
}

// JWKS is a JSON Web Key Set containing the single signing key.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is a public key in JWK format.
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKS returns the public key as a JWK set for offline verification by
// resource servers.
func (s *SigningKey) JWKS() JWKS {
	pub := s.Public()

	exp := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())
	mod := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())

	return JWKS{
		Keys: []JWK{
			{
				Kid: s.keyID,
				Kty: "RSA",
				Alg: "RS256",
				Use: "sig",
				N:   mod,
				E:   exp,
			},
		},
	}
}
