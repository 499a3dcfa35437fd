package models

import (
	"fmt"
	"time"
)

// Session is a dashboard sign-in owned by a [User]. Expiry slides forward while the session is used.
type Session struct {
	id        string
	userID    string
	userAgent string
	ipAddress string
	expiresAt time.Time
	createdAt time.Time
	updatedAt time.Time
}

// NewSession creates a [Session] for userID that expires ttl from now.
func NewSession(userID string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		userID:    userID,
		expiresAt: now.Add(ttl),
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) UserID() string       { return s.userID }
func (s *Session) UserAgent() string    { return s.userAgent }
func (s *Session) IPAddress() string    { return s.ipAddress }
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

func (s *Session) SetID(id string)          { s.id = id }
func (s *Session) SetUserAgent(ua string)   { s.userAgent = ua }
func (s *Session) SetIPAddress(ip string)   { s.ipAddress = ip }
func (s *Session) SetExpiresAt(t time.Time) { s.expiresAt = t }
func (s *Session) SetCreatedAt(t time.Time) { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time) { s.updatedAt = t }

// Expired reports whether the session has passed its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.expiresAt)
}

// Extend moves the expiry to ttl after now.
func (s *Session) Extend(now time.Time, ttl time.Duration) {
	s.expiresAt = now.Add(ttl)
	s.updatedAt = now
}

// Validate checks the session has an owner and an expiry.
func (s *Session) Validate() error {
	if s.userID == "" {
		return fmt.Errorf("session user id is required")
	}
	if s.expiresAt.IsZero() {
		return fmt.Errorf("session expiry is required")
	}
	return nil
}
