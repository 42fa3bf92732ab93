package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/onegate-dev/onegate/domain"
	"github.com/onegate-dev/onegate/internal/auth"
	"github.com/onegate-dev/onegate/storage/memory"
	"github.com/onegate-dev/onegate/token"
)

const testIssuerURL = "https://auth.example.com"

// mintAccessToken runs a real code exchange to obtain a signed token.
func mintAccessToken(t *testing.T, key *token.SigningKey) string {
	t.Helper()

	store := memory.NewStore()
	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)

	require.NoError(t, store.CreateClient(context.Background(), &domain.Client{
		ID:           "client-1",
		Type:         domain.Public,
		RedirectURIs: []string{"https://app.example.com/callback"},
		GrantTypes:   []string{"authorization_code"},
	}))

	now := time.Now().UTC()
	require.NoError(t, store.SaveAuthCode(context.Background(), &domain.AuthCode{
		Code:                "code-1",
		ClientID:            "client-1",
		Subject:             "operator-1",
		Scope:               "read",
		RedirectURI:         "https://app.example.com/callback",
		CodeChallenge:       "verifier-value",
		CodeChallengeMethod: "plain",
		IssuedAt:            now,
		ExpiresAt:           now.Add(domain.AuthCodeTTL),
	}))

	issuer := token.NewIssuer(store, store, store, key, hasher, testIssuerURL)
	resp, err := issuer.ExchangeAuthorizationCode(context.Background(), token.CodeGrant{
		Code:         "code-1",
		RedirectURI:  "https://app.example.com/callback",
		ClientID:     "client-1",
		CodeVerifier: "verifier-value",
	})
	require.NoError(t, err)
	return resp.AccessToken
}

func newProtectedServer(t *testing.T, validator *token.Validator) *echo.Echo {
	t.Helper()

	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		principal := PrincipalFromContext(c)
		require.NotNil(t, principal)
		return c.JSON(http.StatusOK, principal)
	}, RequireToken(validator))
	return e
}

func TestRequireToken(t *testing.T) {
	key, err := token.GenerateSigningKey()
	require.NoError(t, err)

	e := newProtectedServer(t, token.NewValidator(key, testIssuerURL))
	accessToken := mintAccessToken(t, key)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "operator-1")
}

func TestRequireToken_Missing(t *testing.T) {
	key, err := token.GenerateSigningKey()
	require.NoError(t, err)
	e := newProtectedServer(t, token.NewValidator(key, testIssuerURL))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_token")
}

func TestRequireToken_Invalid(t *testing.T) {
	key, err := token.GenerateSigningKey()
	require.NoError(t, err)
	e := newProtectedServer(t, token.NewValidator(key, testIssuerURL))

	for _, header := range []string{"Bearer garbage", "Token abc", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}
