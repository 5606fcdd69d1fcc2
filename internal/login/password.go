package login

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/growgo/internal/db"
	"github.com/udisondev/growgo/internal/model"
)

const bcryptCost = 12

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 5

// PlayerLookup finds a player by name.
type PlayerLookup interface {
	GetPlayer(ctx context.Context, name string) (model.Player, error)
}

// PasswordAuthenticator checks legacy name and password logins against the
// bcrypt hash stored on the player.
type PasswordAuthenticator struct {
	players PlayerLookup
}

// NewPasswordAuthenticator creates an authenticator over players.
func NewPasswordAuthenticator(players PlayerLookup) *PasswordAuthenticator {
	return &PasswordAuthenticator{players: players}
}

// Authenticate returns a session for the player named name.
// Players without a password cannot log in this way.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, name, password string) (model.Session, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || password == "" {
		return model.Session{}, ErrInvalidToken
	}
	pl, err := a.players.GetPlayer(ctx, name)
	if errors.Is(err, db.ErrNotFound) {
		return model.Session{}, ErrInvalidToken
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("looking up player %q: %w", name, err)
	}
	if pl.PasswordHash == "" {
		return model.Session{}, ErrInvalidToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(pl.PasswordHash), []byte(password)); err != nil {
		return model.Session{}, ErrInvalidToken
	}
	return model.Session{UserID: pl.UserID, Username: pl.Name}, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
