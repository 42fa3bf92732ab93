package echo

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/onegate-dev/onegate/api"
	errs "github.com/onegate-dev/onegate/errors"
	"github.com/onegate-dev/onegate/flow"
	"github.com/onegate-dev/onegate/registry"
	"github.com/onegate-dev/onegate/token"
)

// OAuth2API holds the handler dependencies of the authorization server's
// HTTP surface.
type OAuth2API struct {
	registry   *registry.Service
	flows      *flow.Coordinator
	issuer     *token.Issuer
	signingKey *token.SigningKey
	issuerURL  string
}

// NewOAuth2API initializes the OAuth2 API. issuerURL is the configured
// absolute base URL of this server; all advertised endpoints derive from it.
func NewOAuth2API(
	reg *registry.Service,
	flows *flow.Coordinator,
	issuer *token.Issuer,
	signingKey *token.SigningKey,
	issuerURL string,
) *OAuth2API {
	return &OAuth2API{
		registry:   reg,
		flows:      flows,
		issuer:     issuer,
		signingKey: signingKey,
		issuerURL:  strings.TrimRight(issuerURL, "/"),
	}
}

// RegisterRoutes registers the OAuth2 routes.
func (oa *OAuth2API) RegisterRoutes(e *echo.Echo) {
	e.POST("/oauth2/register", oa.RegisterHandler)
	e.GET("/oauth2/authorize", oa.AuthorizeHandler)
	e.GET("/oauth2/consent/:id", oa.ConsentDetailsHandler)
	e.POST("/oauth2/consent/:id", oa.ConsentDecisionHandler)
	e.POST("/oauth2/token", oa.TokenHandler)

	e.GET("/.well-known/oauth-authorization-server", oa.DiscoveryHandler)
	e.GET("/.well-known/openid-configuration", oa.DiscoveryHandler)
	e.GET("/.well-known/jwks.json", oa.JWKSHandler)
}

// RegisterHandler handles dynamic client registration. Anyone may register;
// clients are untrusted by this server until the operator approves a grant.
func (oa *OAuth2API) RegisterHandler(c echo.Context) error {
	var req api.ClientRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errs.NewInvalidClientMetadata("malformed registration request"))
	}

	resp, err := oa.registry.Register(c.Request().Context(), &req)
	if err != nil {
		var oauthErr *errs.OAuth2Error
		if errors.As(err, &oauthErr) {
			return c.JSON(http.StatusBadRequest, oauthErr)
		}
		log.Error().Err(err).Msg("client registration failed")
		return c.JSON(http.StatusInternalServerError, errs.NewServerError("Failed to register client"))
	}

	return c.JSON(http.StatusCreated, resp)
}

// AuthorizeHandler handles OAuth 2.0 authorization requests. A valid request
// is parked for the operator's decision and the user agent is redirected to
// the consent UI. Validation failures are rendered directly until the
// redirect target itself has been validated; after that they travel back to
// the client through the redirect URI.
func (oa *OAuth2API) AuthorizeHandler(c echo.Context) error {
	req := flow.AuthorizeRequest{
		ClientID:            c.QueryParam("client_id"),
		RedirectURI:         c.QueryParam("redirect_uri"),
		ResponseType:        c.QueryParam("response_type"),
		Scope:               c.QueryParam("scope"),
		State:               c.QueryParam("state"),
		CodeChallenge:       c.QueryParam("code_challenge"),
		CodeChallengeMethod: c.QueryParam("code_challenge_method"),
	}

	consentLocation, err := oa.flows.Authorize(c.Request().Context(), req)
	if err != nil {
		var authErr *flow.AuthorizeError
		if errors.As(err, &authErr) {
			if authErr.RedirectURI == "" {
				return c.JSON(http.StatusBadRequest, authErr.OAuth)
			}
			return c.Redirect(http.StatusFound, errorRedirect(authErr.RedirectURI, authErr.OAuth))
		}
		log.Error().Err(err).Msg("authorization request failed")
		return c.JSON(http.StatusInternalServerError, errs.NewServerError("Failed to process authorization request"))
	}

	return c.Redirect(http.StatusFound, consentLocation)
}

// ConsentDetailsHandler returns what the consent UI needs to render the
// approval prompt for a pending authorization request.
func (oa *OAuth2API) ConsentDetailsHandler(c echo.Context) error {
	details, err := oa.flows.ResolvePending(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, flow.ErrFlowNotFound) || errors.Is(err, flow.ErrFlowExpired) {
			return c.JSON(http.StatusNotFound, errs.NewInvalidRequest("unknown or expired authorization request"))
		}
		log.Error().Err(err).Msg("failed to resolve pending authorization")
		return c.JSON(http.StatusInternalServerError, errs.NewServerError("Failed to load authorization request"))
	}

	return c.JSON(http.StatusOK, details)
}

// ConsentDecisionHandler records the operator's approve or deny decision.
// Each pending request accepts exactly one decision; the response carries
// the redirect target for the user agent.
func (oa *OAuth2API) ConsentDecisionHandler(c echo.Context) error {
	var decision api.ConsentDecisionRequest
	if err := c.Bind(&decision); err != nil {
		return c.JSON(http.StatusBadRequest, errs.NewInvalidRequest("malformed consent decision"))
	}

	redirectTo, err := oa.flows.Decide(c.Request().Context(), c.Param("id"), &decision)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials"})
		case errors.Is(err, flow.ErrFlowNotFound), errors.Is(err, flow.ErrFlowExpired):
			return c.JSON(http.StatusNotFound, errs.NewInvalidRequest("unknown or expired authorization request"))
		}
		log.Error().Err(err).Msg("consent decision failed")
		return c.JSON(http.StatusInternalServerError, errs.NewServerError("Failed to record decision"))
	}

	return c.JSON(http.StatusOK, api.ConsentDecisionResponse{RedirectTo: redirectTo})
}

// GrantType enumeration for OAuth2 grant types.
type GrantType string

const (
	GrantTypeAuthorizationCode GrantType = "authorization_code"
	GrantTypeRefreshToken      GrantType = "refresh_token"
)

// TokenHandler handles OAuth2 token requests. Client credentials arrive via
// HTTP Basic auth or form parameters; the grant parameters come from the
// form body. Grant failures collapse to invalid_grant so a caller cannot
// probe which check rejected it.
func (oa *OAuth2API) TokenHandler(c echo.Context) error {
	clientID, clientSecret := clientCredentials(c)
	grantType := c.FormValue("grant_type")

	ctx := c.Request().Context()

	var tokenResponse *api.TokenResponse
	var processErr error

	switch GrantType(grantType) {
	case GrantTypeAuthorizationCode:
		tokenResponse, processErr = oa.issuer.ExchangeAuthorizationCode(ctx, token.CodeGrant{
			Code:         c.FormValue("code"),
			RedirectURI:  c.FormValue("redirect_uri"),
			ClientID:     clientID,
			ClientSecret: clientSecret,
			CodeVerifier: c.FormValue("code_verifier"),
		})
	case GrantTypeRefreshToken:
		tokenResponse, processErr = oa.issuer.ExchangeRefreshToken(ctx, token.RefreshGrant{
			RefreshToken: c.FormValue("refresh_token"),
			ClientID:     clientID,
			ClientSecret: clientSecret,
		})
	default:
		return c.JSON(http.StatusBadRequest, errs.NewUnsupportedGrantType())
	}

	if processErr != nil {
		var oauthErr *errs.OAuth2Error
		if errors.As(processErr, &oauthErr) {
			if oauthErr.Code == errs.InvalidClient {
				c.Response().Header().Set("WWW-Authenticate", `Basic realm="oauth2"`)
				return c.JSON(http.StatusUnauthorized, oauthErr)
			}
			return c.JSON(http.StatusBadRequest, oauthErr)
		}

		log.Error().Err(processErr).Str("grant_type", grantType).Msg("Token generation failed")
		return c.JSON(http.StatusInternalServerError, errs.NewServerError("Failed to generate token"))
	}

	log.Info().
		Str("client_id", clientID).
		Str("grant_type", grantType).
		Int("expires_in", tokenResponse.ExpiresIn).
		Msg("Token generated")

	return c.JSON(http.StatusOK, tokenResponse)
}

// DiscoveryHandler serves the authorization-server metadata. Endpoints are
// advertised under the configured issuer URL, never the request host.
func (oa *OAuth2API) DiscoveryHandler(c echo.Context) error {
	doc := api.DiscoveryDocument{
		Issuer:                        oa.issuerURL,
		AuthorizationEndpoint:         oa.issuerURL + "/oauth2/authorize",
		TokenEndpoint:                 oa.issuerURL + "/oauth2/token",
		RegistrationEndpoint:          oa.issuerURL + "/oauth2/register",
		JwksURI:                       oa.issuerURL + "/.well-known/jwks.json",
		ResponseTypesSupported:        []string{"code"},
		GrantTypesSupported:           []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethods:      []string{"none", "client_secret_post", "client_secret_basic"},
		CodeChallengeMethodsSupported: []string{"plain", "S256"},
	}

	return c.JSON(http.StatusOK, doc)
}

// clientCredentials extracts the client credentials from HTTP Basic auth,
// falling back to the form parameters.
func clientCredentials(c echo.Context) (clientID, clientSecret string) {
	if id, secret, ok := c.Request().BasicAuth(); ok {
		return id, secret
	}
	return c.FormValue("client_id"), c.FormValue("client_secret")
}

// errorRedirect appends the error code, description and state to a validated
// redirect URI.
func errorRedirect(redirectURI string, oauthErr *errs.OAuth2Error) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("error", oauthErr.Code)
	if oauthErr.Description != "" {
		q.Set("error_description", oauthErr.Description)
	}
	if oauthErr.State != "" {
		q.Set("state", oauthErr.State)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
