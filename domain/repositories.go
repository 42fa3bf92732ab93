package domain

import (
	"context"
	"errors"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrClientExists   = errors.New("client already exists")

	// ErrAuthCodeNotFound covers missing, expired and already-consumed codes
	// alike. Callers collapse all of them to invalid_grant, so the store does
	// not distinguish them either.
	ErrAuthCodeNotFound = errors.New("authorization code not found or not redeemable")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	// ErrRefreshTokenRevoked is returned by the conditional revoke when the
	// token was already revoked: the caller lost the race or is replaying.
	ErrRefreshTokenRevoked = errors.New("refresh token already revoked")

	ErrUserNotFound = errors.New("user not found")
)

// ClientRepository persists registered clients. Clients are created once and
// never updated or deleted in-band.
type ClientRepository interface {
	CreateClient(ctx context.Context, client *Client) error
	GetClient(ctx context.Context, clientID string) (*Client, error)
}

// AuthCodeRepository persists authorization codes.
type AuthCodeRepository interface {
	SaveAuthCode(ctx context.Context, code *AuthCode) error

	// ConsumeAuthCode atomically marks the code consumed if and only if it is
	// currently unconsumed and unexpired, returning the stored code on
	// success. Under two concurrent redemption attempts exactly one caller
	// gets the code back; the other gets ErrAuthCodeNotFound. Single-use
	// depends on this primitive, never on a read-then-write in the caller.
	ConsumeAuthCode(ctx context.Context, code string) (*AuthCode, error)
}

// RefreshTokenRepository persists refresh tokens and their rotation lineage.
type RefreshTokenRepository interface {
	StoreRefreshToken(ctx context.Context, token *RefreshToken) error

	// GetRefreshToken returns the stored token regardless of its revoked
	// flag, so the issuer can tell reuse apart from an unknown token.
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)

	// RevokeRefreshToken atomically sets the revoked flag if and only if it
	// is currently unset. Exactly one of two concurrent rotation attempts
	// succeeds; the loser gets ErrRefreshTokenRevoked.
	RevokeRefreshToken(ctx context.Context, token string) error

	// RevokeLineage revokes every successor reachable from the given token
	// through RotatedFrom. Used only when reuse-triggered lineage revocation
	// is enabled.
	RevokeLineage(ctx context.Context, token string) error
}

// UserRepository persists the single operator record.
type UserRepository interface {
	// EnsureUser creates or replaces the operator record at startup.
	EnsureUser(ctx context.Context, user *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}
