package flow

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/onegate-dev/onegate/api"
	"github.com/onegate-dev/onegate/domain"
	errs "github.com/onegate-dev/onegate/errors"
	"github.com/onegate-dev/onegate/internal/auth"
	"github.com/onegate-dev/onegate/internal/rand"
	"github.com/onegate-dev/onegate/token"
)

// pendingTTL bounds the time the operator has to decide. It matches the
// authorization-code window.
const pendingTTL = domain.AuthCodeTTL

// AuthorizeRequest carries the query parameters of an authorization request.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthorizeError is a failed authorization request. RedirectURI is populated
// only once the redirect target has been validated; while it is empty the
// error must be shown directly, never delivered through the unvalidated URI.
type AuthorizeError struct {
	OAuth       *errs.OAuth2Error
	RedirectURI string
}

func (e *AuthorizeError) Error() string {
	return e.OAuth.Error()
}

// Coordinator validates authorization requests, delegates the approve/deny
// decision to the consent collaborator and mints single-use authorization
// codes on approval.
type Coordinator struct {
	clients    domain.ClientRepository
	codes      domain.AuthCodeRepository
	users      domain.UserRepository
	flows      Store
	hasher     auth.PasswordHasher
	consentURL string
}

// NewCoordinator creates a new Coordinator. consentURL is the base URL of the
// external consent UI; pending request IDs are appended as a query parameter.
func NewCoordinator(
	clients domain.ClientRepository,
	codes domain.AuthCodeRepository,
	users domain.UserRepository,
	flows Store,
	hasher auth.PasswordHasher,
	consentURL string,
) *Coordinator {
	return &Coordinator{
		clients:    clients,
		codes:      codes,
		users:      users,
		flows:      flows,
		hasher:     hasher,
		consentURL: consentURL,
	}
}

// Authorize validates the request and parks it for the operator's decision.
// It returns the consent UI URL the user agent should be sent to. Failures
// before the redirect target is trusted come back without a RedirectURI.
func (c *Coordinator) Authorize(ctx context.Context, req AuthorizeRequest) (string, error) {
	cli, err := c.clients.GetClient(ctx, req.ClientID)
	if err != nil {
		return "", &AuthorizeError{OAuth: errs.NewInvalidClient("Unknown client_id")}
	}

	// Exact membership only. A trailing slash is a different URI.
	if !cli.HasRedirectURI(req.RedirectURI) {
		return "", &AuthorizeError{OAuth: errs.NewInvalidRequest("redirect_uri is not registered for this client")}
	}

	// From here on the redirect target is trusted and errors travel through it.
	if req.ResponseType != "code" {
		return "", c.redirectErr(req, errs.NewInvalidRequest("unsupported response_type"))
	}

	method := req.CodeChallengeMethod
	if method == "" {
		method = token.ChallengeMethodPlain
	}
	if req.CodeChallenge == "" {
		return "", c.redirectErr(req, errs.NewInvalidRequest("code_challenge is required"))
	}
	if !token.SupportedChallengeMethod(method) {
		return "", c.redirectErr(req, errs.NewInvalidRequest("unsupported code_challenge_method"))
	}

	now := time.Now().UTC()
	pending := &PendingAuthorization{
		ID:                  uuid.NewString(),
		ClientID:            cli.ID,
		ClientName:          cli.Name,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		State:               req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: method,
		Status:              StatusReceived,
		CreatedAt:           now,
		ExpiresAt:           now.Add(pendingTTL),
	}

	if err := c.flows.SaveFlow(ctx, pending); err != nil {
		log.Error().Err(err).Msg("failed to store pending authorization")
		return "", c.redirectErr(req, errs.NewServerError("Failed to process authorization request"))
	}

	log.Debug().
		Str("request_id", pending.ID).
		Str("client_id", cli.ID).
		Msg("authorization request awaiting decision")

	return withQuery(c.consentURL, url.Values{"request_id": {pending.ID}}), nil
}

// ResolvePending returns what the consent UI needs to render the prompt and
// marks the request as awaiting its decision.
func (c *Coordinator) ResolvePending(ctx context.Context, id string) (*api.ConsentDetails, error) {
	pending, err := c.flows.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}

	if pending.Status == StatusReceived {
		pending.Status = StatusAwaitingDecision
		if err := c.flows.UpdateFlow(ctx, pending); err != nil {
			log.Warn().Err(err).Str("request_id", id).Msg("failed to mark pending authorization as awaiting decision")
		}
	}

	return &api.ConsentDetails{
		ClientName:  pending.ClientName,
		Scope:       pending.Scope,
		RedirectURI: pending.RedirectURI,
	}, nil
}

// Decide records the operator's decision and returns the redirect target for
// the user agent. Approval is bound to the operator's password; the check
// never discloses whether the presented identity exists, because exactly one
// identity does. A request can be decided exactly once.
func (c *Coordinator) Decide(ctx context.Context, id string, decision *api.ConsentDecisionRequest) (string, error) {
	var user *domain.User
	if decision.Approved {
		var err error
		user, err = c.checkCredentials(ctx, decision.Email, decision.Password)
		if err != nil {
			// The flow stays pending so a mistyped password can be retried.
			return "", err
		}
	}

	pending, err := c.flows.ClaimFlow(ctx, id)
	if err != nil {
		return "", err
	}

	if !decision.Approved {
		pending.Status = StatusDenied
		log.Info().
			Str("request_id", pending.ID).
			Str("client_id", pending.ClientID).
			Msg("authorization denied")

		return withQuery(pending.RedirectURI, url.Values{
			"error": {errs.AccessDenied},
			"state": {pending.State},
		}), nil
	}

	code, err := c.mintCode(ctx, pending, user.ID)
	if err != nil {
		return "", err
	}

	pending.Status = StatusGranted
	log.Info().
		Str("request_id", pending.ID).
		Str("client_id", pending.ClientID).
		Str("scope", pending.Scope).
		Msg("authorization granted")

	return withQuery(pending.RedirectURI, url.Values{
		"code":  {code},
		"state": {pending.State},
	}), nil
}

func (c *Coordinator) checkCredentials(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := c.users.GetUserByEmail(ctx, email)
	if err != nil {
		// Exactly one identity exists; the failure reads the same whether the
		// email or the password was wrong.
		return nil, errs.ErrInvalidCredentials
	}
	if err := c.hasher.Verify(user.PasswordHash, password); err != nil {
		return nil, errs.ErrInvalidCredentials
	}
	return user, nil
}

func (c *Coordinator) mintCode(ctx context.Context, pending *PendingAuthorization, subject string) (string, error) {
	value, err := rand.NewAuthCode()
	if err != nil {
		return "", errs.NewServerError("Failed to generate authorization code")
	}

	now := time.Now().UTC()
	authCode := &domain.AuthCode{
		Code:                value,
		ClientID:            pending.ClientID,
		Subject:             subject,
		RedirectURI:         pending.RedirectURI,
		Scope:               pending.Scope,
		CodeChallenge:       pending.CodeChallenge,
		CodeChallengeMethod: pending.CodeChallengeMethod,
		IssuedAt:            now,
		ExpiresAt:           now.Add(domain.AuthCodeTTL),
	}

	if err := c.codes.SaveAuthCode(ctx, authCode); err != nil {
		log.Error().Err(err).Str("client_id", pending.ClientID).Msg("failed to save authorization code")
		return "", errs.NewServerError("Failed to generate authorization code")
	}

	return value, nil
}

func (c *Coordinator) redirectErr(req AuthorizeRequest, oauthErr *errs.OAuth2Error) *AuthorizeError {
	oauthErr.State = req.State
	return &AuthorizeError{OAuth: oauthErr, RedirectURI: req.RedirectURI}
}

func withQuery(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	for key, values := range params {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		q.Set(key, values[0])
	}
	u.RawQuery = q.Encode()
	return u.String()
}
