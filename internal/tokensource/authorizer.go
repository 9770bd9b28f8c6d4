package tokensource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/florianilch/infusionsoft/internal/transport"
)

// Endpoint is the Infusionsoft OAuth2 endpoint. AuthStyle is unused: the
// exchange sends credentials in the form, the refresh as Basic auth.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://signin.infusionsoft.com/app/oauth/authorize",
	TokenURL: "https://api.infusionsoft.com/token",
}

// Scope is the only scope the provider grants.
const Scope = "full"

// Credentials identify the registered application.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Authorizer handles the OAuth2 authorization-code flow for Infusionsoft.
// It builds token requests by hand because the provider authenticates the code
// exchange with form parameters but the refresh with HTTP Basic credentials.
// An Authorizer is safe for concurrent use.
type Authorizer struct {
	creds    Credentials
	endpoint oauth2.Endpoint
	client   *http.Client
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithEndpoint overrides the authorization and token URLs.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(a *Authorizer) {
		a.endpoint = endpoint
	}
}

// WithHTTPClient sets the client used for token requests.
// Timeouts and proxies are configured on the client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Authorizer) {
		if client != nil {
			a.client = client
		}
	}
}

// NewAuthorizer creates an Infusionsoft OAuth authorizer.
func NewAuthorizer(creds Credentials, opts ...Option) *Authorizer {
	a := &Authorizer{
		creds:    creds,
		endpoint: Endpoint,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuthCodeURL returns the URL the user visits to grant access.
// redirectURI is interpolated verbatim; callers must pre-encode reserved characters.
func (a *Authorizer) AuthCodeURL(redirectURI string) string {
	return fmt.Sprintf("%s?client_id=%s&redirect_uri=%s&response_type=code&scope=%s",
		a.endpoint.AuthURL, a.creds.ClientID, redirectURI, Scope)
}

// Exchange trades an authorization code for a token pair.
// redirectURI must match the one used to obtain the code.
func (a *Authorizer) Exchange(ctx context.Context, code, redirectURI string) (*TokenPair, error) {
	form := url.Values{
		"client_id":     {a.creds.ClientID},
		"client_secret": {a.creds.ClientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURI},
	}

	req, err := a.newTokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("creating exchange request: %w", err)
	}

	return a.retrieve(req, "exchange")
}

// Refresh trades a refresh token for a new token pair.
// The client credentials travel as HTTP Basic auth; Go strings are UTF-8, so
// secrets with multi-byte characters are encoded byte for byte.
func (a *Authorizer) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	req, err := a.newTokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("creating refresh request: %w", err)
	}
	req.SetBasicAuth(a.creds.ClientID, a.creds.ClientSecret)

	return a.retrieve(req, "refresh")
}

func (a *Authorizer) newTokenRequest(ctx context.Context, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// retrieve sends a token request and decodes the JSON answer.
// Both grant types share this contract: malformed bodies surface as DecodeError,
// OAuth error bodies, non-2xx statuses and answers without an access token as TokenError.
func (a *Authorizer) retrieve(req *http.Request, op string) (*TokenPair, error) {
	resp, err := transport.Do(a.client, op, req)
	if err != nil {
		return nil, err
	}

	var body tokenResponse
	if err := resp.DecodeJSON(op, &body); err != nil {
		return nil, err
	}

	if body.Error != "" || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TokenError{
			Op:          op,
			StatusCode:  resp.StatusCode,
			Code:        body.Error,
			Description: body.ErrorDescription,
		}
	}

	if body.AccessToken == "" {
		return nil, &TokenError{
			Op:          op,
			StatusCode:  resp.StatusCode,
			Description: "response carries no access_token",
		}
	}

	return &body.TokenPair, nil
}
