package main

import (
	"context"
	"time"

	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/repositories"
	"github.com/desertthunder/peai/internal/shared"
	"github.com/urfave/cli/v3"
)

type sessionRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionsPrune hard-deletes expired and signed-out sessions.
func (r *Runner) SessionsPrune(ctx context.Context, cmd *cli.Command) error {
	db, _, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repositories.NewSessionRepository(db).DeleteExpired(time.Now())
	if err != nil {
		return err
	}

	r.logger.Info("pruned sessions", "count", n)
	return r.writePlain("Removed %d session(s)\n", n)
}

// SessionsList prints live sessions, newest first.
func (r *Runner) SessionsList(ctx context.Context, cmd *cli.Command) error {
	db, _, err := shared.OpenMigrated(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := repositories.NewSessionRepository(db).List(map[string]any{models.CriteriaUserID: cmd.String("user")})
	if err != nil {
		return err
	}

	rows := make([]sessionRow, len(sessions))
	for i, s := range sessions {
		rows[i] = sessionRow{
			ID:        s.ID(),
			UserID:    s.UserID(),
			UserAgent: s.UserAgent(),
			IPAddress: s.IPAddress(),
			ExpiresAt: s.ExpiresAt(),
			CreatedAt: s.CreatedAt(),
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	r.writePlainHeader("Sessions")
	for _, row := range rows {
		r.writePlain("%s  user=%s  expires=%s  %s\n", row.ID, row.UserID, row.ExpiresAt.Format(time.RFC3339), row.IPAddress)
	}
	return r.writePlainln("%d live session(s)", len(rows))
}
