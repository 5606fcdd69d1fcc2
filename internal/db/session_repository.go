package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/growgo/internal/model"
)

// PostgresSessionRepository reads the sessions written by the web portal.
type PostgresSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSessionRepository creates a session repository over pool.
func NewPostgresSessionRepository(pool *pgxpool.Pool) *PostgresSessionRepository {
	return &PostgresSessionRepository{pool: pool}
}

// GetSession returns the session of token, or ErrNotFound.
func (r *PostgresSessionRepository) GetSession(ctx context.Context, token string) (model.Session, error) {
	s := model.Session{Token: token}
	var expires *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, username, expires_at FROM sessions WHERE token = $1`, token,
	).Scan(&s.UserID, &s.Username, &expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, ErrNotFound
	}
	if err != nil {
		return s, fmt.Errorf("querying session: %w", err)
	}
	if expires != nil {
		s.ExpiresAt = *expires
	}
	return s, nil
}

// CreateSession inserts s.
func (r *PostgresSessionRepository) CreateSession(ctx context.Context, s model.Session) error {
	var expires *time.Time
	if !s.ExpiresAt.IsZero() {
		expires = &s.ExpiresAt
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, username, expires_at) VALUES ($1, $2, $3, $4)`,
		s.Token, s.UserID, s.Username, expires)
	if err != nil {
		return fmt.Errorf("creating session for %q: %w", s.UserID, err)
	}
	return nil
}
