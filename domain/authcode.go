package domain

import "time"

// AuthCodeTTL is the validity window of an authorization code. Expiry is
// enforced lazily at redemption time, not by a background sweep.
const AuthCodeTTL = 10 * time.Minute

// AuthCode represents a single-use OAuth 2.0 authorization code. It carries
// every fact needed to complete the token exchange, because the authorization
// flow spans two independent requests with no in-memory continuation.
type AuthCode struct {
	Code                string    `bson:"code"                  json:"code"`
	ClientID            string    `bson:"client_id"             json:"client_id"`
	Subject             string    `bson:"subject"               json:"subject"`
	RedirectURI         string    `bson:"redirect_uri"          json:"redirect_uri"`
	Scope               string    `bson:"scope"                 json:"scope"`
	CodeChallenge       string    `bson:"code_challenge"        json:"code_challenge"`
	CodeChallengeMethod string    `bson:"code_challenge_method" json:"code_challenge_method"`
	IssuedAt            time.Time `bson:"issued_at"             json:"issued_at"`
	ExpiresAt           time.Time `bson:"expires_at"            json:"expires_at"`
	Consumed            bool      `bson:"consumed"              json:"consumed"`
}

// Expired reports whether the code is past its validity window at the given time.
func (c *AuthCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
