package errors

import (
	"errors"
	"fmt"
)

// OAuth2Error represents a standardized OAuth 2.0 error response.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	State       string `json:"state,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes.
const (
	InvalidRequest        = "invalid_request"
	UnauthorizedClient    = "unauthorized_client"
	AccessDenied          = "access_denied"
	UnsupportedGrantType  = "unsupported_grant_type"
	InvalidClient         = "invalid_client"
	InvalidGrant          = "invalid_grant"
	InvalidClientMetadata = "invalid_client_metadata"
	ServerError           = "server_error"
)

// Internal failure reasons. These never leave the process as-is: grant-path
// failures collapse to the single external invalid_grant signal, credential
// failures to invalid_credentials, validator failures to invalid_token.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAccessDenied       = errors.New("access denied by user")
)

func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidRequest,
		Description: description,
	}
}

func NewInvalidClient(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidClient,
		Description: description,
	}
}

// NewInvalidGrant covers every grant-exchange failure: expired, consumed or
// mismatched codes and refresh tokens, verifier mismatches, redirect_uri
// mismatches. The description stays generic so the exchange never reveals
// which check failed.
func NewInvalidGrant() *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidGrant,
		Description: "The provided grant is invalid, expired, or already used",
	}
}

func NewInvalidClientMetadata(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        InvalidClientMetadata,
		Description: description,
	}
}

func NewAccessDenied(state string) *OAuth2Error {
	return &OAuth2Error{
		Code:        AccessDenied,
		Description: "The resource owner denied the request",
		State:       state,
	}
}

func NewUnauthorizedClient(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        UnauthorizedClient,
		Description: description,
	}
}

func NewUnsupportedGrantType() *OAuth2Error {
	return &OAuth2Error{
		Code:        UnsupportedGrantType,
		Description: "The authorization grant type is not supported",
	}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{
		Code:        ServerError,
		Description: description,
	}
}
