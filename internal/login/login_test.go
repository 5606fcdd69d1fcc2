package login

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/growgo/internal/db"
	"github.com/udisondev/growgo/internal/model"
)

type sessionMap map[string]model.Session

func (m sessionMap) GetSession(_ context.Context, token string) (model.Session, error) {
	if token == "broken" {
		return model.Session{}, errors.New("connection reset")
	}
	s, ok := m[token]
	if !ok {
		return model.Session{}, db.ErrNotFound
	}
	return s, nil
}

func TestDBValidator(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	v := NewDBValidator(sessionMap{
		"good":    {Token: "good", UserID: "u1", Username: "alice", ExpiresAt: now.Add(time.Hour)},
		"old":     {Token: "old", UserID: "u2", ExpiresAt: now.Add(-time.Second)},
		"nouser":  {Token: "nouser", ExpiresAt: now.Add(time.Hour)},
		"forever": {Token: "forever", UserID: "u3"},
	})
	v.now = func() time.Time { return now }
	ctx := context.Background()

	s, err := v.Validate(ctx, " good ")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)

	_, err = v.Validate(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, err = v.Validate(ctx, "missing")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(ctx, "nouser")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Validate(ctx, "forever")
	assert.NoError(t, err, "sessions without expiry never expire")

	_, err = v.Validate(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestJWTValidator(t *testing.T) {
	now := time.Now()
	v := NewJWTValidator([]byte("secret"))
	ctx := context.Background()

	tok, err := v.Issue("user-1", "alice", time.Hour)
	require.NoError(t, err)

	s, err := v.Validate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "alice", s.Username)
	assert.WithinDuration(t, now.Add(time.Hour), s.ExpiresAt, 2*time.Second)

	t.Run("expired", func(t *testing.T) {
		old := NewJWTValidator([]byte("secret"))
		old.now = func() time.Time { return now.Add(-2 * time.Hour) }
		tok, err := old.Issue("user-1", "alice", time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(ctx, tok)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := NewJWTValidator([]byte("other")).Issue("user-1", "alice", time.Hour)
		require.NoError(t, err)
		_, err = v.Validate(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "user-1", "usr": "alice", "exp": now.Add(time.Hour).Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Validate(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing claims", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "user-1", "exp": now.Add(time.Hour).Unix(),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = v.Validate(ctx, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Validate(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

type playerMap map[string]model.Player

func (m playerMap) GetPlayer(_ context.Context, name string) (model.Player, error) {
	p, ok := m[name]
	if !ok {
		return model.Player{}, db.ErrNotFound
	}
	return p, nil
}

func TestPasswordAuthenticator(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	a := NewPasswordAuthenticator(playerMap{
		"alice": {UserID: "u1", Name: "alice", PasswordHash: string(hash)},
		"bob":   {UserID: "u2", Name: "bob"},
	})
	ctx := context.Background()

	s, err := a.Authenticate(ctx, "Alice", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)

	_, err = a.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = a.Authenticate(ctx, "bob", "anything")
	assert.ErrorIs(t, err, ErrInvalidToken, "no password set")
	_, err = a.Authenticate(ctx, "carol", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashPassword(t *testing.T) {
	_, err := HashPassword("abc")
	assert.Error(t, err)

	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter22")))
}
