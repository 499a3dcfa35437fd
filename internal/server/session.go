package server

import (
	"encoding/hex"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/peai/internal/shared"
)

const (
	tokenIssuer   = "peai"
	tokenAudience = "peai-dashboard"
	keyBytesSize  = 32
)

// SessionClaims are carried inside the encrypted session cookie.
type SessionClaims struct {
	SessionID string
	Subject   string
	ExpiresAt time.Time
}

// SessionCodec encrypts and decrypts session cookies as PASETO v4.local tokens.
type SessionCodec struct {
	key paseto.V4SymmetricKey
	now func() time.Time
}

// NewSessionCodec creates a codec from a 64 character hex key.
//
// An empty key generates an ephemeral one, so sessions do not survive a restart.
func NewSessionCodec(keyHex string, logger *log.Logger) (*SessionCodec, error) {
	if keyHex == "" {
		if logger != nil {
			logger.Warn("no session key configured, using an ephemeral key", "hint", "set auth.session_key or PEAI_SESSION_KEY")
		}
		return &SessionCodec{key: paseto.NewV4SymmetricKey(), now: time.Now}, nil
	}

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: session key is not hex: %v", shared.ErrInvalidConfig, err)
	}
	if len(keyBytes) != keyBytesSize {
		return nil, fmt.Errorf("%w: session key must be %d bytes, got %d", shared.ErrInvalidConfig, keyBytesSize, len(keyBytes))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	return &SessionCodec{key: key, now: time.Now}, nil
}

// GenerateSessionKey returns a new random key in the hex form accepted by [NewSessionCodec].
func GenerateSessionKey() string {
	return paseto.NewV4SymmetricKey().ExportHex()
}

// Encode encrypts claims into a token string.
func (c *SessionCodec) Encode(claims SessionClaims) string {
	now := c.now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(claims.Subject)
	token.SetJti(claims.SessionID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(claims.ExpiresAt)

	return token.V4Encrypt(c.key, nil)
}

// Decode decrypts and validates a token, returning errors wrapping [shared.ErrNotAuthenticated].
func (c *SessionCodec) Decode(raw string) (*SessionClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(c.now()))

	token, err := parser.ParseV4Local(c.key, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid session token: %v", shared.ErrNotAuthenticated, err)
	}

	sid, err := token.GetJti()
	if err != nil || sid == "" {
		return nil, fmt.Errorf("%w: session token missing id", shared.ErrNotAuthenticated)
	}
	subject, err := token.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: session token missing subject", shared.ErrNotAuthenticated)
	}
	exp, err := token.GetExpiration()
	if err != nil {
		return nil, fmt.Errorf("%w: session token missing expiry", shared.ErrNotAuthenticated)
	}

	return &SessionClaims{SessionID: sid, Subject: subject, ExpiresAt: exp}, nil
}
