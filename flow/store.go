package flow

import (
	"context"
	"errors"
)

var (
	ErrFlowNotFound = errors.New("pending authorization not found")
	ErrFlowExpired  = errors.New("pending authorization expired")
)

// Store keeps pending authorization requests between the authorize request
// and the operator's decision. Entries expire with the request's window.
type Store interface {
	// SaveFlow stores a new pending request.
	SaveFlow(ctx context.Context, pending *PendingAuthorization) error

	// GetFlow retrieves a pending request by ID, checking expiry.
	GetFlow(ctx context.Context, id string) (*PendingAuthorization, error)

	// UpdateFlow replaces a stored pending request, keeping its expiry.
	UpdateFlow(ctx context.Context, pending *PendingAuthorization) error

	// ClaimFlow atomically removes and returns a pending request. Of two
	// concurrent decisions for the same request, exactly one caller gets the
	// request back; the other gets ErrFlowNotFound.
	ClaimFlow(ctx context.Context, id string) (*PendingAuthorization, error)
}
