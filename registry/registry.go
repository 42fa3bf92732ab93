// Package registry implements dynamic client registration. Clients register
// themselves on demand; no pre-shared secret between operator and client
// vendor exists.
package registry

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/onegate-dev/onegate/api"
	"github.com/onegate-dev/onegate/domain"
	errs "github.com/onegate-dev/onegate/errors"
	"github.com/onegate-dev/onegate/internal/auth"
	"github.com/onegate-dev/onegate/internal/rand"
)

var (
	allowedGrantTypes    = map[string]bool{"authorization_code": true, "refresh_token": true}
	allowedResponseTypes = map[string]bool{"code": true}
)

// Service accepts client self-registration and issues identity/secret pairs.
type Service struct {
	clients domain.ClientRepository
	hasher  auth.PasswordHasher
}

// NewService creates a new registration Service.
func NewService(clients domain.ClientRepository, hasher auth.PasswordHasher) *Service {
	return &Service{clients: clients, hasher: hasher}
}

// Register validates the submitted metadata, persists the client and returns
// the issued credentials. The plaintext secret appears in the response exactly
// once; only its hash is stored. Nothing is persisted when validation fails.
func (s *Service) Register(ctx context.Context, req *api.ClientRegistrationRequest) (*api.ClientRegistrationResponse, error) {
	if err := validateMetadata(req); err != nil {
		return nil, err
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code", "refresh_token"}
	}
	responseTypes := req.ResponseTypes
	if len(responseTypes) == 0 {
		responseTypes = []string{"code"}
	}

	clientID, err := rand.NewClientID()
	if err != nil {
		return nil, errs.NewServerError("Failed to generate client credentials")
	}

	clientType := domain.Confidential
	authMethod := req.TokenEndpointAuthMethod
	if authMethod == "" {
		authMethod = "client_secret_post"
	}
	if authMethod == "none" {
		clientType = domain.Public
	}

	var secret, secretHash string
	if clientType == domain.Confidential {
		secret, err = rand.NewClientSecret()
		if err != nil {
			return nil, errs.NewServerError("Failed to generate client credentials")
		}
		secretHash, err = s.hasher.Hash(secret)
		if err != nil {
			return nil, errs.NewServerError("Failed to generate client credentials")
		}
	}

	cli := &domain.Client{
		ID:                clientID,
		SecretHash:        secretHash,
		Type:              clientType,
		Name:              req.ClientName,
		RedirectURIs:      req.RedirectURIs,
		GrantTypes:        grantTypes,
		ResponseTypes:     responseTypes,
		TokenEndpointAuth: authMethod,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.clients.CreateClient(ctx, cli); err != nil {
		log.Error().Err(err).Msg("failed to persist registered client")
		return nil, errs.NewServerError("Failed to register client")
	}

	log.Info().
		Str("client_id", cli.ID).
		Str("client_name", cli.Name).
		Str("client_type", string(cli.Type)).
		Msg("client registered")

	return &api.ClientRegistrationResponse{
		ClientID:                cli.ID,
		ClientSecret:            secret,
		ClientIDIssuedAt:        cli.CreatedAt.Unix(),
		ClientName:              cli.Name,
		RedirectURIs:            cli.RedirectURIs,
		GrantTypes:              cli.GrantTypes,
		ResponseTypes:           cli.ResponseTypes,
		TokenEndpointAuthMethod: cli.TokenEndpointAuth,
	}, nil
}

func validateMetadata(req *api.ClientRegistrationRequest) error {
	if len(req.RedirectURIs) == 0 {
		return errs.NewInvalidClientMetadata("redirect_uris is required")
	}
	for _, raw := range req.RedirectURIs {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return errs.NewInvalidClientMetadata("redirect_uris must contain absolute URIs")
		}
	}
	for _, gt := range req.GrantTypes {
		if !allowedGrantTypes[gt] {
			return errs.NewInvalidClientMetadata("unsupported grant_type: " + gt)
		}
	}
	for _, rt := range req.ResponseTypes {
		if !allowedResponseTypes[rt] {
			return errs.NewInvalidClientMetadata("unsupported response_type: " + rt)
		}
	}
	switch req.TokenEndpointAuthMethod {
	case "", "none", "client_secret_post", "client_secret_basic":
	default:
		return errs.NewInvalidClientMetadata("unsupported token_endpoint_auth_method")
	}
	return nil
}
