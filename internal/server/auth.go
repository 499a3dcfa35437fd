package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/shared"
)

// SessionCookie holds the encrypted session token.
const SessionCookie = "peai_session"

const identityKey contextKey = "identity"

// UserStore is the subset of [repositories.UserRepository] the auth gate needs.
type UserStore interface {
	Get(id string) (*models.User, error)
	Upsert(subject, email, name, image string) (*models.User, error)
}

// SessionStore is the subset of [repositories.SessionRepository] the auth gate needs.
type SessionStore interface {
	Create(session *models.Session) error
	Get(id string) (*models.Session, error)
	Touch(session *models.Session, ttl time.Duration) error
	Delete(id string) error
}

// Identity is the signed-in user attached to a request.
type Identity struct {
	User    *models.User
	Session *models.Session
}

// IdentityFromContext returns the identity attached by [Authenticator.Authenticate].
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// Authenticator resolves session cookies to users and starts or ends sessions.
type Authenticator struct {
	codec    *SessionCodec
	users    UserStore
	sessions SessionStore
	ttl      time.Duration
	secure   bool
	logger   *log.Logger
	now      func() time.Time
	onEnd    []func(sessionID string)
}

// NewAuthenticator creates an [Authenticator] issuing sessions that live for ttl after last use.
func NewAuthenticator(codec *SessionCodec, users UserStore, sessions SessionStore, ttl time.Duration, secure bool, logger *log.Logger) *Authenticator {
	return &Authenticator{
		codec:    codec,
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		secure:   secure,
		logger:   logger,
		now:      time.Now,
	}
}

// OnSessionEnd registers fn to run with the session id whenever a user signs out.
func (a *Authenticator) OnSessionEnd(fn func(sessionID string)) {
	a.onEnd = append(a.onEnd, fn)
}

// Users returns the user store.
func (a *Authenticator) Users() UserStore {
	return a.users
}

// Authenticate attaches the [Identity] for a valid session cookie to the request context.
//
// Requests without a usable cookie pass through anonymously; a stale cookie is cleared.
// Sessions past half their lifetime slide forward and the cookie is reissued.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := a.resolve(cookie.Value)
		if err != nil {
			a.logger.Debug("discarding session cookie", "error", err)
			a.clearCookie(w)
			next.ServeHTTP(w, r)
			return
		}

		if identity.Session.ExpiresAt().Sub(a.now()) < a.ttl/2 {
			if err := a.sessions.Touch(identity.Session, a.ttl); err != nil {
				a.logger.Warn("failed to extend session", "session", identity.Session.ID(), "error", err)
			} else {
				a.setCookie(w, identity.User, identity.Session)
			}
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func (a *Authenticator) resolve(raw string) (*Identity, error) {
	claims, err := a.codec.Decode(raw)
	if err != nil {
		return nil, err
	}

	session, err := a.sessions.Get(claims.SessionID)
	if err != nil {
		return nil, err
	}

	user, err := a.users.Get(session.UserID())
	if err != nil {
		return nil, err
	}
	if user.Subject() != claims.Subject {
		return nil, shared.ErrNotAuthenticated
	}

	return &Identity{User: user, Session: session}, nil
}

// StartSession creates a session for user and sets the session cookie.
func (a *Authenticator) StartSession(w http.ResponseWriter, r *http.Request, user *models.User) (*models.Session, error) {
	session := models.NewSession(user.ID(), a.ttl)
	session.SetUserAgent(r.UserAgent())
	session.SetIPAddress(ClientIP(r))

	if err := a.sessions.Create(session); err != nil {
		return nil, err
	}

	a.setCookie(w, user, session)
	a.logger.Info("session started", "user", user.ID(), "session", session.ID())
	return session, nil
}

// EndSession deletes the current session, if any, and clears the cookie.
func (a *Authenticator) EndSession(w http.ResponseWriter, r *http.Request) {
	if identity, ok := IdentityFromContext(r.Context()); ok {
		if err := a.sessions.Delete(identity.Session.ID()); err != nil && !errors.Is(err, shared.ErrNotFound) {
			a.logger.Warn("failed to delete session", "session", identity.Session.ID(), "error", err)
		}
		for _, fn := range a.onEnd {
			fn(identity.Session.ID())
		}
		a.logger.Info("session ended", "user", identity.User.ID())
	}
	a.clearCookie(w)
}

func (a *Authenticator) setCookie(w http.ResponseWriter, user *models.User, session *models.Session) {
	token := a.codec.Encode(SessionClaims{
		SessionID: session.ID(),
		Subject:   user.Subject(),
		ExpiresAt: session.ExpiresAt(),
	})

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt(),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Authenticator) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireAuth redirects anonymous requests to the sign-in page, remembering the requested path.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		http.Redirect(w, r, LoginURL(r.URL.Path), http.StatusSeeOther)
	})
}

// RedirectIfAuthenticated sends signed-in users to target instead of serving the page.
func RedirectIfAuthenticated(target string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := IdentityFromContext(r.Context()); ok {
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginURL returns the sign-in page URL that returns to callback afterwards.
func LoginURL(callback string) string {
	if callback == "" || callback == "/" {
		return "/login"
	}
	return "/login?" + url.Values{"callbackUrl": {callback}}.Encode()
}

// SanitizeCallback keeps same-origin relative paths and falls back to /dashboard for anything else.
func SanitizeCallback(raw, baseURL string) string {
	const fallback = "/dashboard"
	if raw == "" {
		return fallback
	}

	if raw[0] == '/' {
		if len(raw) > 1 && (raw[1] == '/' || raw[1] == '\\') {
			return fallback
		}
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil || baseURL == "" {
		return fallback
	}
	base, err := url.Parse(baseURL)
	if err != nil || u.Scheme != base.Scheme || u.Host != base.Host {
		return fallback
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}
