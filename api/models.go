// Package api holds the wire-level request and response models of the
// authorization server's HTTP surface.
package api

// TokenResponse represents an OAuth 2.0 token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// ClientRegistrationRequest is the metadata a client submits when it
// registers itself (RFC 7591 subset).
type ClientRegistrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	ResponseTypes           []string `json:"response_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
}

// ClientRegistrationResponse echoes the accepted metadata together with the
// issued credentials. The client_secret appears here exactly once; it is
// never retrievable again.
type ClientRegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
}

// ConsentDetails is what the consent UI needs to render an approval prompt.
type ConsentDetails struct {
	ClientName  string `json:"client_name"`
	Scope       string `json:"scope"`
	RedirectURI string `json:"redirect_uri"`
}

// ConsentDecisionRequest records the operator's decision on a pending
// authorization request. Credentials are required on approval.
type ConsentDecisionRequest struct {
	Approved bool   `json:"approved"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// ConsentDecisionResponse tells the consent UI where to send the user agent.
type ConsentDecisionResponse struct {
	RedirectTo string `json:"redirect_to"`
}

// DiscoveryDocument is the authorization-server metadata served at the
// well-known path (RFC 8414 subset). The issuer is the configured absolute
// URL, never derived from the request's apparent host: tokens validate
// against this exact value.
type DiscoveryDocument struct {
	Issuer                        string   `json:"issuer"`
	AuthorizationEndpoint         string   `json:"authorization_endpoint"`
	TokenEndpoint                 string   `json:"token_endpoint"`
	RegistrationEndpoint          string   `json:"registration_endpoint"`
	JwksURI                       string   `json:"jwks_uri"`
	ScopesSupported               []string `json:"scopes_supported,omitempty"`
	ResponseTypesSupported        []string `json:"response_types_supported"`
	GrantTypesSupported           []string `json:"grant_types_supported"`
	TokenEndpointAuthMethods      []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported"`
}
