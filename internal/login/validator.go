// Package login validates the credentials a client presents on connect.
package login

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/udisondev/growgo/internal/db"
	"github.com/udisondev/growgo/internal/model"
)

var (
	// ErrSessionExpired is returned for a known session past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrInvalidToken is returned for unknown, malformed or forged credentials.
	ErrInvalidToken = errors.New("invalid token")
)

// Validator resolves a session token to a session.
type Validator interface {
	Validate(ctx context.Context, token string) (model.Session, error)
}

// SessionRepository looks up sessions written by the web portal.
type SessionRepository interface {
	GetSession(ctx context.Context, token string) (model.Session, error)
}

// DBValidator validates tokens against the sessions table.
type DBValidator struct {
	sessions SessionRepository
	now      func() time.Time
}

// NewDBValidator creates a validator backed by sessions.
func NewDBValidator(sessions SessionRepository) *DBValidator {
	return &DBValidator{sessions: sessions, now: time.Now}
}

// Validate implements Validator.
func (v *DBValidator) Validate(ctx context.Context, token string) (model.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Session{}, ErrInvalidToken
	}
	s, err := v.sessions.GetSession(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		return model.Session{}, ErrInvalidToken
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("looking up session: %w", err)
	}
	if s.Expired(v.now()) {
		return model.Session{}, ErrSessionExpired
	}
	if s.UserID == "" {
		return model.Session{}, ErrInvalidToken
	}
	return s, nil
}
