package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/growgo/internal/model"
)

const playerColumns = `id, user_id, name, display_name, role, data, gems, level, exp,
	last_world, password_hash, created_at, updated_at`

func scanPlayer(row rowScanner) (model.Player, error) {
	var p model.Player
	var data []byte
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.DisplayName, &p.Role, &data,
		&p.Gems, &p.Level, &p.Exp, &p.LastWorld, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if err := decodePlayerData(data, &p); err != nil {
		return p, err
	}
	return p, nil
}

// PostgresPlayerRepository stores players in PostgreSQL.
type PostgresPlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPlayerRepository creates a player repository over pool.
func NewPostgresPlayerRepository(pool *pgxpool.Pool) *PostgresPlayerRepository {
	return &PostgresPlayerRepository{pool: pool}
}

// GetPlayer returns the player named name, or ErrNotFound.
func (r *PostgresPlayerRepository) GetPlayer(ctx context.Context, name string) (model.Player, error) {
	name = strings.ToLower(name)
	p, err := scanPlayer(r.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return p, fmt.Errorf("player %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("querying player %q: %w", name, err)
	}
	return p, nil
}

// GetOrCreatePlayer returns the player of userID, creating it from d on
// first login. INSERT ... ON CONFLICT DO NOTHING keeps concurrent logins of
// the same user from creating two rows.
func (r *PostgresPlayerRepository) GetOrCreatePlayer(ctx context.Context, userID string, d model.PlayerDefaults) (model.Player, error) {
	fresh := model.NewPlayer(userID, d)
	data, err := encodePlayerData(fresh)
	if err != nil {
		return fresh, err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO players (user_id, name, display_name, role, data, gems, level, exp, last_world)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT DO NOTHING`,
		fresh.UserID, fresh.Name, fresh.DisplayName, fresh.Role, data,
		fresh.Gems, fresh.Level, fresh.Exp, fresh.LastWorld,
	)
	if err != nil {
		return fresh, fmt.Errorf("inserting player %q: %w", userID, err)
	}

	p, err := scanPlayer(r.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return fresh, fmt.Errorf("player %q for user %q: %w", fresh.Name, userID, ErrNameTaken)
	}
	if err != nil {
		return fresh, fmt.Errorf("querying player of user %q: %w", userID, err)
	}
	return p, nil
}

// SavePlayer writes the mutable fields of p. The password hash is only
// changed through SetPassword.
func (r *PostgresPlayerRepository) SavePlayer(ctx context.Context, p model.Player) error {
	data, err := encodePlayerData(p)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE players SET display_name = $2, role = $3, data = $4, gems = $5, level = $6,
		 exp = $7, last_world = $8, updated_at = $9
		 WHERE user_id = $1`,
		p.UserID, p.DisplayName, p.Role, data, p.Gems, p.Level, p.Exp, p.LastWorld, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving player %q: %w", p.Name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("saving player %q: %w", p.Name, ErrNotFound)
	}
	return nil
}

// SetPassword replaces the password hash of userID.
func (r *PostgresPlayerRepository) SetPassword(ctx context.Context, userID, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE players SET password_hash = $2, updated_at = $3 WHERE user_id = $1`,
		userID, hash, time.Now())
	if err != nil {
		return fmt.Errorf("setting password of %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("setting password of %q: %w", userID, ErrNotFound)
	}
	return nil
}
