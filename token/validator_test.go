package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/onegate-dev/onegate/errors"
)

func signTestToken(t *testing.T, key *SigningKey, claims jwt.MapClaims) string {
	t.Helper()

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	jwtToken.Header["kid"] = key.keyID
	signed, err := jwtToken.SignedString(key.key)
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":       testIssuerURL,
		"sub":       "operator-1",
		"client_id": "client-1",
		"scope":     "read",
		"iat":       jwt.NewNumericDate(now).Unix(),
		"exp":       jwt.NewNumericDate(now.Add(time.Hour)).Unix(),
	}
}

func TestValidate(t *testing.T) {
	key, err := GenerateSigningKey()
	require.NoError(t, err)
	v := NewValidator(key, testIssuerURL)

	principal, err := v.Validate(signTestToken(t, key, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "operator-1", principal.Subject)
	assert.Equal(t, "client-1", principal.ClientID)
	assert.Equal(t, "read", principal.Scope)
}

func TestValidate_WrongKey(t *testing.T) {
	key, err := GenerateSigningKey()
	require.NoError(t, err)
	otherKey, err := GenerateSigningKey()
	require.NoError(t, err)

	v := NewValidator(otherKey, testIssuerURL)
	_, err = v.Validate(signTestToken(t, key, validClaims()))
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestValidate_Expired(t *testing.T) {
	key, err := GenerateSigningKey()
	require.NoError(t, err)
	v := NewValidator(key, testIssuerURL)

	claims := validClaims()
	claims["exp"] = jwt.NewNumericDate(time.Now().Add(-time.Minute)).Unix()

	_, err = v.Validate(signTestToken(t, key, claims))
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestValidate_IssuerMismatch(t *testing.T) {
	key, err := GenerateSigningKey()
	require.NoError(t, err)
	v := NewValidator(key, testIssuerURL)

	claims := validClaims()
	claims["iss"] = "https://other.example.com"

	_, err = v.Validate(signTestToken(t, key, claims))
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestValidate_MissingSubject(t *testing.T) {
	key, err := GenerateSigningKey()
	require.NoError(t, err)
	v := NewValidator(key, testIssuerURL)

	claims := validClaims()
	delete(claims, "sub")

	_, err = v.Validate(signTestToken(t, key, claims))
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestValidate_MissingExpiry(t *testing.T) {
	key, err := GenerateSigningKey()
	require.NoError(t, err)
	v := NewValidator(key, testIssuerURL)

	claims := validClaims()
	delete(claims, "exp")

	_, err = v.Validate(signTestToken(t, key, claims))
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}

func TestValidate_Garbage(t *testing.T) {
	key, err := GenerateSigningKey()
	require.NoError(t, err)
	v := NewValidator(key, testIssuerURL)

	_, err = v.Validate("not.a.jwt")
	assert.ErrorIs(t, err, errs.ErrInvalidToken)

	_, err = v.Validate("")
	assert.ErrorIs(t, err, errs.ErrInvalidToken)
}
