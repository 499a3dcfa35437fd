package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/peai/internal/catalog"
	"github.com/desertthunder/peai/internal/chat"
	"github.com/desertthunder/peai/internal/player"
	"github.com/desertthunder/peai/internal/server"
	"github.com/desertthunder/peai/internal/services"
	"github.com/desertthunder/peai/internal/shared"
)

// Deps are the collaborators the dashboard is built from.
//
// Provider may be nil, in which case sign-in reports a configuration error. Limiter may be nil to
// disable request rate limiting.
type Deps struct {
	Config   *shared.Config
	Catalog  *catalog.Catalog
	Chat     *chat.Service
	Tracker  *player.Tracker
	Auth     *server.Authenticator
	Provider services.IdentityProvider
	Limiter  *shared.KeyedRateLimiter
	Logger   *log.Logger
}

// App is the dashboard web application.
type App struct {
	config    *shared.Config
	catalog   *catalog.Catalog
	chat      *chat.Service
	tracker   *player.Tracker
	auth      *server.Authenticator
	provider  services.IdentityProvider
	limiter   *shared.KeyedRateLimiter
	logger    *log.Logger
	templates *templates
}

// New builds the dashboard and registers session cleanup with the authenticator.
func New(deps Deps) (*App, error) {
	if deps.Config == nil || deps.Catalog == nil || deps.Chat == nil || deps.Auth == nil {
		return nil, fmt.Errorf("%w: web app needs config, catalog, chat and auth", shared.ErrInvalidConfig)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = player.NewTracker(player.DefaultTrackerSize)
	}

	a := &App{
		config:    deps.Config,
		catalog:   deps.Catalog,
		chat:      deps.Chat,
		tracker:   tracker,
		auth:      deps.Auth,
		provider:  deps.Provider,
		limiter:   deps.Limiter,
		logger:    logger,
		templates: tmpl,
	}

	a.auth.OnSessionEnd(func(sessionID string) {
		a.tracker.Forget(sessionID)
		a.chat.Reset(sessionID)
	})
	return a, nil
}

// Routes returns the complete dashboard handler with middleware applied.
func (a *App) Routes() http.Handler {
	r := server.NewBasicRouter()
	r.Use(
		server.Recover(a.logger),
		server.Logging(a.logger),
		server.SecurityHeaders(server.ProviderOrigin(a.provider)),
		server.RateLimit(a.limiter, a.logger),
		a.auth.Authenticate,
	)

	r.HandleFunc(http.MethodGet, "/{$}", a.landing)
	r.HandleFunc(http.MethodGet, "/health", a.health)
	r.Handler(server.NewOAuthHandler(a.provider, a.auth, a.config.Server.BaseURL, a.config.Auth.CookieSecure, a.logger))

	guest := r.Group(server.RedirectIfAuthenticated("/dashboard"))
	guest.HandleFunc(http.MethodGet, "/login", a.login)

	protected := r.Group(server.RequireAuth)
	protected.HandleFunc(http.MethodGet, "/dashboard", a.dashboard)
	protected.HandleFunc(http.MethodGet, "/chat", a.chatHome)
	protected.HandleFunc(http.MethodGet, "/chat/qa", a.qa)
	protected.HandleFunc(http.MethodPost, "/chat/qa", a.qaSend)
	protected.HandleFunc(http.MethodPost, "/chat/qa/regenerate", a.qaRegenerate)
	protected.HandleFunc(http.MethodGet, "/videos/{course}", a.videos)
	protected.HandleFunc(http.MethodGet, "/videos/{course}/{videoId}", a.video)
	protected.HandleFunc(http.MethodPost, "/videos/{course}/{videoId}/player", a.playerEvent)

	r.HandleFunc("", "/", func(w http.ResponseWriter, req *http.Request) {
		a.notFound(w, req, "页面不存在", "找不到你要访问的页面", "/")
	})

	return r
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
