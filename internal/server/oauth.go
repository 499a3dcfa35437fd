package server

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/peai/internal/services"
	"github.com/desertthunder/peai/internal/shared"
)

const (
	stateCookie    = "peai_oauth_state"
	callbackCookie = "peai_oauth_callback"
	flowMaxAge     = 600
)

// Sign-in error codes shown on the login page.
const (
	ErrCodeConfiguration = "Configuration"
	ErrCodeAccessDenied  = "AccessDenied"
	ErrCodeState         = "OAuthState"
	ErrCodeCallback      = "OAuthCallback"
)

// OAuthHandler runs the authorization code sign-in flow against an [services.IdentityProvider].
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	provider services.IdentityProvider
	auth     *Authenticator
	baseURL  string
	secure   bool
	logger   *log.Logger
}

// NewOAuthHandler creates the sign-in handler. A nil provider leaves sign-in disabled
// and every attempt lands back on the login page with a configuration error.
func NewOAuthHandler(provider services.IdentityProvider, auth *Authenticator, baseURL string, secure bool, logger *log.Logger) *OAuthHandler {
	return &OAuthHandler{
		provider: provider,
		auth:     auth,
		baseURL:  baseURL,
		secure:   secure,
		logger:   logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /auth/login", "GET /auth/callback", "POST /auth/logout"}
}

// ServeHTTP dispatches to the login, callback or logout step.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/login":
		h.login(w, r)
	case "/auth/callback":
		h.callback(w, r)
	case "/auth/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *OAuthHandler) login(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.fail(w, r, ErrCodeConfiguration)
		return
	}

	state, err := shared.GenerateToken("state")
	if err != nil {
		h.logger.Error("failed to generate oauth state", "error", err)
		h.fail(w, r, ErrCodeConfiguration)
		return
	}

	callback := SanitizeCallback(r.URL.Query().Get("callbackUrl"), h.baseURL)
	h.setFlowCookie(w, stateCookie, state, flowMaxAge)
	h.setFlowCookie(w, callbackCookie, url.QueryEscape(callback), flowMaxAge)

	h.logger.Debug("redirecting to identity provider", "provider", h.provider.Name(), "callback", callback)
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusFound)
}

func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.fail(w, r, ErrCodeConfiguration)
		return
	}

	q := r.URL.Query()
	expected, err := r.Cookie(stateCookie)
	callback := "/dashboard"
	if c, err := r.Cookie(callbackCookie); err == nil {
		if v, err := url.QueryUnescape(c.Value); err == nil {
			callback = SanitizeCallback(v, h.baseURL)
		}
	}

	h.setFlowCookie(w, stateCookie, "", -1)
	h.setFlowCookie(w, callbackCookie, "", -1)

	if e := q.Get("error"); e != "" {
		h.logger.Warn("identity provider returned an error", "error", e, "description", q.Get("error_description"))
		h.fail(w, r, ErrCodeAccessDenied)
		return
	}

	state := q.Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected.Value)) != 1 {
		h.logger.Warn("oauth state mismatch", "error", shared.ErrInvalidState)
		h.fail(w, r, ErrCodeState)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.fail(w, r, ErrCodeCallback)
		return
	}

	token, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		h.fail(w, r, ErrCodeCallback)
		return
	}

	principal, err := h.provider.Principal(r.Context(), token)
	if err != nil {
		h.logger.Error("failed to load principal", "error", err)
		h.fail(w, r, ErrCodeCallback)
		return
	}

	user, err := h.auth.Users().Upsert(principal.Subject, principal.Email, principal.Name, principal.Picture)
	if err != nil {
		h.logger.Error("failed to save user", "subject", principal.Subject, "error", err)
		h.fail(w, r, ErrCodeCallback)
		return
	}

	if _, err := h.auth.StartSession(w, r, user); err != nil {
		h.logger.Error("failed to start session", "user", user.ID(), "error", err)
		h.fail(w, r, ErrCodeCallback)
		return
	}

	http.Redirect(w, r, callback, http.StatusFound)
}

func (h *OAuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.auth.EndSession(w, r)

	target := "/login"
	if h.provider != nil && h.baseURL != "" {
		target = h.provider.LogoutURL(h.baseURL + "/login")
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// ProviderOrigin returns the scheme and host of p's logout endpoint, or "" for a nil provider.
// The logout form is answered with a redirect there, so the CSP form-action must allow it.
func ProviderOrigin(p services.IdentityProvider) string {
	if p == nil {
		return ""
	}
	u, err := url.Parse(p.LogoutURL("/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?"+url.Values{"error": {code}}.Encode(), http.StatusFound)
}

func (h *OAuthHandler) setFlowCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
