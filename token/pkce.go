package token

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Supported code_challenge_method values.
const (
	ChallengeMethodS256  = "S256"
	ChallengeMethodPlain = "plain"
)

// SupportedChallengeMethod reports whether the given code_challenge_method is
// one the server accepts.
func SupportedChallengeMethod(method string) bool {
	return method == ChallengeMethodS256 || method == ChallengeMethodPlain
}

// VerifyCodeVerifier transforms the verifier per the challenge method and
// compares it against the stored challenge in constant time.
func VerifyCodeVerifier(challenge, method, verifier string) bool {
	if challenge == "" || verifier == "" {
		return false
	}

	var derived string
	switch method {
	case ChallengeMethodS256:
		sum := sha256.Sum256([]byte(verifier))
		derived = base64.RawURLEncoding.EncodeToString(sum[:])
	case ChallengeMethodPlain:
		derived = verifier
	default:
		return false
	}

	return subtle.ConstantTimeCompare([]byte(challenge), []byte(derived)) == 1
}
