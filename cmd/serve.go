package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/peai/internal/chat"
	"github.com/desertthunder/peai/internal/player"
	"github.com/desertthunder/peai/internal/repositories"
	"github.com/desertthunder/peai/internal/server"
	"github.com/desertthunder/peai/internal/services"
	"github.com/desertthunder/peai/internal/shared"
	"github.com/desertthunder/peai/internal/web"
	"github.com/urfave/cli/v3"
)

const (
	janitorInterval = 10 * time.Minute
	chatIdle        = 2 * time.Hour
	limiterIdle     = 10 * time.Minute
)

// Serve wires the catalog, storage, identity provider and chat service into the web
// application and serves it until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.config
	if err := config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, applied, err := shared.OpenMigrated(config.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if applied > 0 {
		r.logger.Info("applied migrations", "count", applied)
	}

	cat, err := r.loadCatalog()
	if err != nil {
		return err
	}
	r.logger.Info("catalog loaded", "course", cat.Course().Slug, "videos", cat.Len())

	key := config.Auth.SessionKey
	if key == "" {
		key = server.GenerateSessionKey()
		r.logger.Warn("no session key configured, sessions will not survive a restart", "hint", "peai setup keygen")
	}
	codec, err := server.NewSessionCodec(key, r.logger)
	if err != nil {
		return err
	}

	sessions := repositories.NewSessionRepository(db)
	auth := server.NewAuthenticator(
		codec,
		repositories.NewUserRepository(db),
		sessions,
		config.Auth.SessionTTL(),
		config.Auth.CookieSecure,
		r.logger,
	)

	var provider services.IdentityProvider
	if svc, err := services.NewAuth0Service(config.Auth); err != nil {
		if !errors.Is(err, shared.ErrMissingCredentials) {
			return err
		}
		r.logger.Warn("identity provider not configured, sign-in is disabled", "reason", err)
	} else {
		provider = svc.WithHTTPClient(r.httpClient)
	}

	responder, err := chat.NewResponder(ctx, config.Chat)
	if err != nil {
		return fmt.Errorf("failed to create chat responder: %w", err)
	}
	chatService := chat.NewService(responder, chat.Options{
		MessagesPerMinute: config.Chat.MessagesPerMinute,
		Logger:            shared.WithLogger(r.logger, "component", "chat"),
	})

	limiter := shared.NewKeyedRateLimiter(config.Server.RateLimitRPS, config.Server.RateLimitBurst)
	tracker := player.NewTracker(0)

	app, err := web.New(web.Deps{
		Config:   config,
		Catalog:  cat,
		Chat:     chatService,
		Tracker:  tracker,
		Auth:     auth,
		Provider: provider,
		Limiter:  limiter,
		Logger:   shared.WithLogger(r.logger, "component", "web"),
	})
	if err != nil {
		return err
	}

	go r.janitor(ctx, chatService, limiter, sessions)

	if cmd.Bool("open") {
		go func() {
			if err := r.open(config.Server.BaseURL); err != nil {
				r.logger.Warn("failed to open browser", "error", err)
			}
		}()
	}

	srv := server.NewHTTPServer(config.Server, app.Routes())
	return server.Serve(ctx, srv, shared.Seconds(config.Server.ShutdownTimeout), r.logger)
}

// janitor drops idle conversations and limiter buckets and expired sessions until ctx is done.
func (r *Runner) janitor(ctx context.Context, chatService *chat.Service, limiter *shared.KeyedRateLimiter, sessions *repositories.SessionRepository) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			conversations := chatService.Prune(chatIdle)
			buckets := limiter.Sweep(limiterIdle)
			expired, err := sessions.DeleteExpired(now)
			if err != nil {
				r.logger.Warn("failed to prune sessions", "error", err)
			}
			r.logger.Debug("janitor", "conversations", conversations, "limiters", buckets, "sessions", expired)
		}
	}
}
