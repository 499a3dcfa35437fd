// Auth0 implementation of [IdentityProvider]
//
// Endpoints follow https://auth0.com/docs/api/authentication
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/peai/internal/shared"
	"golang.org/x/oauth2"
)

var defaultScopes = []string{"openid", "email", "profile"}

// Auth0Service implements [IdentityProvider] for an Auth0 tenant.
type Auth0Service struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// NewAuth0Service creates an Auth0 identity provider from the [shared.AuthConfig].
//
// The domain may be a bare tenant host ("tenant.auth0.com") or a full base URL.
func NewAuth0Service(cfg shared.AuthConfig) (*Auth0Service, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("%w: missing auth domain", shared.ErrMissingCredentials)
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	baseURL := strings.TrimRight(cfg.Domain, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  baseURL + "/authorize",
			TokenURL: baseURL + "/oauth/token",
		},
	}

	return &Auth0Service{config: config, baseURL: baseURL, httpClient: http.DefaultClient}, nil
}

// WithHTTPClient sets the client used for token and userinfo requests.
func (s *Auth0Service) WithHTTPClient(c *http.Client) *Auth0Service {
	s.httpClient = c
	return s
}

func (s *Auth0Service) Name() string {
	return "Auth0"
}

// AuthURL returns the /authorize URL for user login.
func (s *Auth0Service) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens.
func (s *Auth0Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Principal fetches the profile for token from /userinfo.
func (s *Auth0Service) Principal(ctx context.Context, token *oauth2.Token) (*Principal, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: userinfo request failed: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: userinfo status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var principal Principal
	if err := json.NewDecoder(resp.Body).Decode(&principal); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if principal.Subject == "" {
		return nil, fmt.Errorf("%w: userinfo missing sub", shared.ErrAuthFailed)
	}
	return &principal, nil
}

// LogoutURL returns the tenant /v2/logout URL that redirects back to returnTo.
func (s *Auth0Service) LogoutURL(returnTo string) string {
	q := url.Values{}
	q.Set("client_id", s.config.ClientID)
	if returnTo != "" {
		q.Set("returnTo", returnTo)
	}
	return s.baseURL + "/v2/logout?" + q.Encode()
}
