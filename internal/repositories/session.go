package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/peai/internal/models"
	"github.com/desertthunder/peai/internal/shared"
)

const sessionColumns = `id, user_id, user_agent, ip_address, expires_at, created_at, updated_at`

// SessionRepository implements [models.Repository] for [models.Session] persistence.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Create inserts a new session with a generated ID.
func (r *SessionRepository) Create(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO sessions (id, user_id, user_agent, ip_address, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, id, session.UserID(), session.UserAgent(), session.IPAddress(),
		session.ExpiresAt(), session.CreatedAt(), session.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	session.SetID(id)
	return nil
}

// Get retrieves a live session by ID. Expired and soft-deleted sessions are reported as
// [shared.ErrSessionExpired] and [shared.ErrNotFound] respectively.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	session, err := scanSession(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if session.Expired(r.now()) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionExpired, id)
	}
	return session, nil
}

// Update persists the session's expiry and client details.
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE sessions
		SET user_agent = ?, ip_address = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	now := r.now()
	result, err := r.db.Exec(query, session.UserAgent(), session.IPAddress(), session.ExpiresAt(), now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if err := affectedOne(result, "session", session.ID()); err != nil {
		return err
	}

	session.SetUpdatedAt(now)
	return nil
}

// Touch slides the session expiry to ttl from now.
func (r *SessionRepository) Touch(session *models.Session, ttl time.Duration) error {
	session.Extend(r.now(), ttl)
	return r.Update(session)
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE sessions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return affectedOne(result, "session", id)
}

// List retrieves live sessions, newest first.
//
// Supported criteria: "user_id" (string).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL AND expires_at > ?`
	args := []any{r.now()}

	if userID, ok := criteria[models.CriteriaUserID].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

// DeleteExpired hard-deletes sessions that expired before now or were soft-deleted, returning the count removed.
func (r *SessionRepository) DeleteExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at <= ? OR deleted_at IS NOT NULL`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		id, userID, userAgent, ipAddress string
		expiresAt, createdAt, updatedAt  time.Time
	)

	if err := row.Scan(&id, &userID, &userAgent, &ipAddress, &expiresAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	session := models.NewSession(userID, 0)
	session.SetID(id)
	session.SetUserAgent(userAgent)
	session.SetIPAddress(ipAddress)
	session.SetExpiresAt(expiresAt)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	return session, nil
}
