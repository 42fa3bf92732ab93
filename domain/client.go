package domain

import "time"

// ClientType represents the type of OAuth2 client.
type ClientType string

const (
	// Confidential clients can securely store secrets.
	Confidential ClientType = "confidential"
	// Public clients cannot securely store secrets (native apps, SPAs).
	Public ClientType = "public"
)

// Client represents a dynamically registered OAuth2 client application.
// A client record is immutable after creation; there is no update or delete path.
type Client struct {
	ID                string     `bson:"client_id"         json:"client_id"`
	SecretHash        string     `bson:"client_secret_hash,omitempty" json:"-"`
	Type              ClientType `bson:"client_type"       json:"client_type"`
	Name              string     `bson:"client_name"       json:"client_name"`
	RedirectURIs      []string   `bson:"redirect_uris"     json:"redirect_uris"`
	GrantTypes        []string   `bson:"grant_types"       json:"grant_types"`
	ResponseTypes     []string   `bson:"response_types"    json:"response_types"`
	TokenEndpointAuth string     `bson:"token_endpoint_auth_method" json:"token_endpoint_auth_method"`
	CreatedAt         time.Time  `bson:"created_at"        json:"created_at"`
}

// HasRedirectURI reports whether uri is an exact member of the client's
// registered set. No prefix or pattern matching: anything looser opens the
// server up as a redirector.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, registered := range c.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// HasGrantType reports whether the client registered the given grant type.
func (c *Client) HasGrantType(grantType string) bool {
	for _, gt := range c.GrantTypes {
		if gt == grantType {
			return true
		}
	}
	return false
}
