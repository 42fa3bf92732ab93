package domain

import "time"

const (
	// AccessTokenTTL bounds the compromise window of a leaked access token.
	// Access tokens are not persisted and cannot be revoked before expiry.
	AccessTokenTTL = time.Hour

	// RefreshTokenTTL is counted from each token's own issuance, so a rotation
	// chain never outlives its most recent exchange by more than 30 days.
	RefreshTokenTTL = 30 * 24 * time.Hour
)

// RefreshToken represents a long-lived, rotating refresh token. Tokens form a
// linear lineage through RotatedFrom; the predecessor is revoked in the same
// conditional step that admits its successor.
type RefreshToken struct {
	Token       string    `bson:"token"        json:"token"`
	ClientID    string    `bson:"client_id"    json:"client_id"`
	Subject     string    `bson:"subject"      json:"subject"`
	Scope       string    `bson:"scope"        json:"scope"`
	IssuedAt    time.Time `bson:"issued_at"    json:"issued_at"`
	ExpiresAt   time.Time `bson:"expires_at"   json:"expires_at"`
	Revoked     bool      `bson:"revoked"      json:"revoked"`
	RotatedFrom string    `bson:"rotated_from,omitempty" json:"rotated_from,omitempty"`
}

// Expired reports whether the token is past its validity window at the given time.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Principal is the validated identity extracted from a bearer token,
// handed to protected resources to authorize downstream actions.
type Principal struct {
	Subject  string `json:"subject"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}
