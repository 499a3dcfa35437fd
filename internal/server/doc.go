// Package server provides HTTP routing, middleware, sessions and the sign-in flow for the dashboard.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] registers "METHOD /path" patterns on [http.ServeMux], so wildcards such as
// "/videos/{course}/{videoId}" are available through [http.Request.PathValue].
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [BasicRouter.Group] adds route-level middleware on top of the router stack, which is how protected
// pages get [RequireAuth].
//
// # Middleware
//
//   - [Logging] and [Recover] : one log line per request; panics become 500s
//   - [SecurityHeaders] : CSP with a per-request nonce, frames limited to [PlayerOrigin]
//   - [RateLimit] : per client address token buckets
//   - [Authenticator.Authenticate] : resolves the session cookie to an [Identity]
//   - [RequireAuth], [RedirectIfAuthenticated] : the auth gate
//
// # Sessions
//
// The session cookie is a PASETO v4.local token ([SessionCodec]) naming a server-side session row.
// Deleting the row signs the user out everywhere the cookie was copied.
//
// # OAuth Sign-in
//
// [OAuthHandler] implements the authorization code flow. The state parameter and the post sign-in
// callback path ride in short-lived HttpOnly cookies scoped to /auth. Callback paths are restricted to
// same-origin relative paths by [SanitizeCallback].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
