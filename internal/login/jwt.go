package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/udisondev/growgo/internal/model"
)

// JWTValidator validates HMAC-signed tokens. Claims: sub (user id),
// usr (username) and exp.
type JWTValidator struct {
	secret []byte
	now    func() time.Time
}

// NewJWTValidator creates a validator for tokens signed with secret.
func NewJWTValidator(secret []byte) *JWTValidator {
	return &JWTValidator{secret: secret, now: time.Now}
}

// Validate implements Validator.
func (v *JWTValidator) Validate(_ context.Context, token string) (model.Session, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return model.Session{}, ErrSessionExpired
	}
	if err != nil || !parsed.Valid {
		return model.Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	sub, _ := claims.GetSubject()
	usr, _ := claims["usr"].(string)
	if sub == "" || usr == "" {
		return model.Session{}, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	s := model.Session{Token: token, UserID: sub, Username: usr}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

// Issue signs a token for userID valid for ttl.
func (v *JWTValidator) Issue(userID, username string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.MapClaims{
		"sub": userID,
		"usr": username,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
