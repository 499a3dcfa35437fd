// Package services defines the [IdentityProvider] interface used to sign users in and implements it for Auth0.
//
// # Identity Provider Interface
//
// The dashboard only needs three things from an identity provider: where to send the browser to sign in,
// how to turn the returned authorization code into a token, and who that token belongs to.
// Everything protocol specific stays behind [IdentityProvider].
//
// # Auth0 Implementation
//
// [Auth0Service] runs the OAuth2 authorization code flow through [oauth2.Config] with the
// "openid email profile" scopes, and reads the signed-in user from the tenant's /userinfo endpoint.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingCredentials] : domain, client id or client secret not configured
//   - [shared.ErrAuthFailed] : code exchange or userinfo request rejected
package services
