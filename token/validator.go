package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/onegate-dev/onegate/domain"
	errs "github.com/onegate-dev/onegate/errors"
)

// Validator verifies bearer tokens presented to protected resources. It is
// pure verification against the signing key and the token's own claims: no
// store lookups, so it cannot fail on store unavailability.
type Validator struct {
	signingKey *SigningKey
	issuer     string
}

// NewValidator creates a Validator bound to the process signing key and the
// configured issuer value.
func NewValidator(signingKey *SigningKey, issuer string) *Validator {
	return &Validator{signingKey: signingKey, issuer: issuer}
}

// Validate checks the token's signature and claims and returns the principal
// it represents. Malformed tokens, signature mismatches, issuer mismatches
// and expired tokens all collapse to ErrInvalidToken.
func (v *Validator) Validate(bearerToken string) (*domain.Principal, error) {
	claims := jwt.MapClaims{}

	_, err := jwt.ParseWithClaims(bearerToken, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return v.signingKey.Public(), nil
		},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errs.ErrInvalidToken
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil || !exp.After(time.Now()) {
		return nil, errs.ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	clientID, _ := claims["client_id"].(string)
	scope, _ := claims["scope"].(string)
	if subject == "" || clientID == "" {
		return nil, errs.ErrInvalidToken
	}

	return &domain.Principal{
		Subject:  subject,
		ClientID: clientID,
		Scope:    scope,
	}, nil
}
