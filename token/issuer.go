package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/onegate-dev/onegate/api"
	"github.com/onegate-dev/onegate/domain"
	"github.com/onegate-dev/onegate/internal/auth"
	"github.com/onegate-dev/onegate/internal/rand"
	errs "github.com/onegate-dev/onegate/errors"
)

// Issuer exchanges authorization codes and refresh tokens for token pairs.
// It owns refresh-token rotation; both grant paths lean on the store's
// conditional-update primitives for their exactly-once guarantees.
type Issuer struct {
	clients    domain.ClientRepository
	codes      domain.AuthCodeRepository
	refresh    domain.RefreshTokenRepository
	signingKey *SigningKey
	hasher     auth.PasswordHasher
	issuer     string

	// RevokeLineageOnReuse burns the whole rotation chain when an
	// already-rotated refresh token is presented. Off by default; reuse then
	// fails only the presented exchange.
	RevokeLineageOnReuse bool
}

// NewIssuer creates a new Issuer instance.
func NewIssuer(
	clients domain.ClientRepository,
	codes domain.AuthCodeRepository,
	refresh domain.RefreshTokenRepository,
	signingKey *SigningKey,
	hasher auth.PasswordHasher,
	issuer string,
) *Issuer {
	return &Issuer{
		clients:    clients,
		codes:      codes,
		refresh:    refresh,
		signingKey: signingKey,
		hasher:     hasher,
		issuer:     issuer,
	}
}

// CodeGrant is the input of the authorization-code exchange.
type CodeGrant struct {
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	CodeVerifier string
}

// RefreshGrant is the input of the refresh-token exchange.
type RefreshGrant struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
}

// ExchangeAuthorizationCode redeems a single-use authorization code for an
// access/refresh token pair. The code is consumed before the remaining checks
// run, so a failed attempt burns it: under two concurrent redemptions exactly
// one caller observes the unconsumed code. Every grant-related failure
// collapses to invalid_grant.
func (s *Issuer) ExchangeAuthorizationCode(ctx context.Context, grant CodeGrant) (*api.TokenResponse, error) {
	cli, err := s.authenticateClient(ctx, grant.ClientID, grant.ClientSecret)
	if err != nil {
		return nil, err
	}

	if !cli.HasGrantType("authorization_code") {
		return nil, errs.NewUnauthorizedClient("Grant type not allowed for this client")
	}

	code, err := s.codes.ConsumeAuthCode(ctx, grant.Code)
	if err != nil {
		log.Debug().Err(err).Str("client_id", cli.ID).Msg("authorization code not redeemable")
		return nil, errs.NewInvalidGrant()
	}

	if code.ClientID != cli.ID {
		return nil, errs.NewInvalidGrant()
	}
	if code.RedirectURI != grant.RedirectURI {
		return nil, errs.NewInvalidGrant()
	}
	if !VerifyCodeVerifier(code.CodeChallenge, code.CodeChallengeMethod, grant.CodeVerifier) {
		return nil, errs.NewInvalidGrant()
	}

	return s.mintPair(ctx, cli.ID, code.Subject, code.Scope, "")
}

// ExchangeRefreshToken rotates the presented refresh token: the predecessor
// is revoked through the store's conditional update and a successor is
// persisted with its lineage reference. Presenting an already-revoked token
// is a reuse signal and fails with invalid_grant.
func (s *Issuer) ExchangeRefreshToken(ctx context.Context, grant RefreshGrant) (*api.TokenResponse, error) {
	cli, err := s.authenticateClient(ctx, grant.ClientID, grant.ClientSecret)
	if err != nil {
		return nil, err
	}

	if !cli.HasGrantType("refresh_token") {
		return nil, errs.NewUnauthorizedClient("Grant type not allowed for this client")
	}

	rt, err := s.refresh.GetRefreshToken(ctx, grant.RefreshToken)
	if err != nil {
		return nil, errs.NewInvalidGrant()
	}

	if rt.ClientID != cli.ID || rt.Expired(time.Now()) {
		return nil, errs.NewInvalidGrant()
	}

	if rt.Revoked {
		return nil, s.handleReuse(ctx, rt)
	}

	// Exactly one of two concurrent rotation attempts may win this update.
	if err := s.refresh.RevokeRefreshToken(ctx, rt.Token); err != nil {
		return nil, s.handleReuse(ctx, rt)
	}

	return s.mintPair(ctx, cli.ID, rt.Subject, rt.Scope, rt.Token)
}

func (s *Issuer) handleReuse(ctx context.Context, rt *domain.RefreshToken) error {
	log.Warn().
		Str("client_id", rt.ClientID).
		Bool("lineage_revocation", s.RevokeLineageOnReuse).
		Msg("refresh token reuse detected")

	if s.RevokeLineageOnReuse {
		if err := s.refresh.RevokeLineage(ctx, rt.Token); err != nil {
			log.Error().Err(err).Msg("failed to revoke refresh token lineage")
		}
	}

	return errs.NewInvalidGrant()
}

func (s *Issuer) authenticateClient(ctx context.Context, clientID, clientSecret string) (*domain.Client, error) {
	cli, err := s.clients.GetClient(ctx, clientID)
	if err != nil {
		return nil, errs.NewInvalidClient("Invalid client credentials")
	}

	// Public clients carry no secret; possession is proven with the PKCE
	// verifier instead.
	if cli.Type == domain.Public {
		return cli, nil
	}

	if err := s.hasher.Verify(cli.SecretHash, clientSecret); err != nil {
		return nil, errs.NewInvalidClient("Invalid client credentials")
	}

	return cli, nil
}

func (s *Issuer) mintPair(ctx context.Context, clientID, subject, scope, rotatedFrom string) (*api.TokenResponse, error) {
	accessToken, err := s.signAccessToken(clientID, subject, scope)
	if err != nil {
		log.Error().Err(err).Msg("failed to sign access token")
		return nil, errs.NewServerError("Failed to issue tokens")
	}

	value, err := rand.NewRefreshToken()
	if err != nil {
		return nil, errs.NewServerError("Failed to issue tokens")
	}

	now := time.Now().UTC()
	refreshToken := &domain.RefreshToken{
		Token:       value,
		ClientID:    clientID,
		Subject:     subject,
		Scope:       scope,
		IssuedAt:    now,
		ExpiresAt:   now.Add(domain.RefreshTokenTTL),
		RotatedFrom: rotatedFrom,
	}
	if err := s.refresh.StoreRefreshToken(ctx, refreshToken); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("failed to store refresh token")
		return nil, errs.NewServerError("Failed to issue tokens")
	}

	return &api.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(domain.AccessTokenTTL.Seconds()),
		RefreshToken: value,
		Scope:        scope,
	}, nil
}

// signAccessToken produces the self-contained bearer token. The claims are a
// deterministic function of the validated grant context.
func (s *Issuer) signAccessToken(clientID, subject, scope string) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"iss":       s.issuer,
		"sub":       subject,
		"client_id": clientID,
		"scope":     scope,
		"iat":       jwt.NewNumericDate(now).Unix(),
		"exp":       jwt.NewNumericDate(now.Add(domain.AccessTokenTTL)).Unix(),
		"jti":       uuid.NewString(),
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	jwtToken.Header["kid"] = s.signingKey.keyID

	return jwtToken.SignedString(s.signingKey.key)
}
