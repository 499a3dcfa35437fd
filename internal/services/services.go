// package services defines interface IdentityProvider for signing users in through a third party
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// IdentityProvider signs users in with the OAuth2 authorization code flow.
type IdentityProvider interface {
	// AuthURL returns the provider URL the browser is redirected to, carrying state for CSRF protection.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Principal returns the user the token was issued to.
	Principal(ctx context.Context, token *oauth2.Token) (*Principal, error)

	// LogoutURL returns the provider URL that ends the provider session and returns to returnTo.
	LogoutURL(returnTo string) string

	// Name returns the name of the provider (e.g., "Auth0")
	Name() string
}

// Principal is the signed-in identity as reported by the provider.
type Principal struct {
	Subject       string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
}
