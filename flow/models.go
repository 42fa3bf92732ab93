// Package flow implements the interactive authorization flow: request
// validation, the pending-request store consumed by the consent UI, and the
// minting of authorization codes once the operator has decided.
package flow

import "time"

// Status tracks a pending authorization request through its lifecycle.
// The machine is RECEIVED -> AWAITING_DECISION -> {GRANTED | DENIED}; the
// terminal states are never stored, they coincide with the request being
// claimed for its one decision.
type Status string

const (
	StatusReceived         Status = "RECEIVED"
	StatusAwaitingDecision Status = "AWAITING_DECISION"
	StatusGranted          Status = "GRANTED"
	StatusDenied           Status = "DENIED"
)

// PendingAuthorization holds a validated authorization request while the
// operator decides. Everything needed to finish the flow travels with it;
// there is no in-memory continuation between the two requests.
type PendingAuthorization struct {
	ID                  string    `json:"id"`
	ClientID            string    `json:"client_id"`
	ClientName          string    `json:"client_name"`
	RedirectURI         string    `json:"redirect_uri"`
	Scope               string    `json:"scope"`
	State               string    `json:"state"`
	CodeChallenge       string    `json:"code_challenge"`
	CodeChallengeMethod string    `json:"code_challenge_method"`
	Status              Status    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}
