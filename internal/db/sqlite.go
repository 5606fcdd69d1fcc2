package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/udisondev/growgo/internal/model"
	"github.com/udisondev/growgo/internal/world"
)

// SQLite is a single-file store for development and small deployments.
// It implements the same repository methods as the PostgreSQL types.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(ctx, conn, "sqlite3", "sqlite"); err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// GetPlayer returns the player named name, or ErrNotFound.
func (s *SQLite) GetPlayer(ctx context.Context, name string) (model.Player, error) {
	name = strings.ToLower(name)
	p, err := scanPlayer(s.conn.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("player %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return p, fmt.Errorf("querying player %q: %w", name, err)
	}
	return p, nil
}

// GetOrCreatePlayer returns the player of userID, creating it from d on first login.
func (s *SQLite) GetOrCreatePlayer(ctx context.Context, userID string, d model.PlayerDefaults) (model.Player, error) {
	fresh := model.NewPlayer(userID, d)
	data, err := encodePlayerData(fresh)
	if err != nil {
		return fresh, err
	}
	now := time.Now().UTC()
	_, err = s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO players
		 (user_id, name, display_name, role, data, gems, level, exp, last_world, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fresh.UserID, fresh.Name, fresh.DisplayName, fresh.Role, data,
		fresh.Gems, fresh.Level, fresh.Exp, fresh.LastWorld, now, now,
	)
	if err != nil {
		return fresh, fmt.Errorf("inserting player %q: %w", userID, err)
	}

	p, err := scanPlayer(s.conn.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return fresh, fmt.Errorf("player %q for user %q: %w", fresh.Name, userID, ErrNameTaken)
	}
	if err != nil {
		return fresh, fmt.Errorf("querying player of user %q: %w", userID, err)
	}
	return p, nil
}

// SavePlayer writes the mutable fields of p.
func (s *SQLite) SavePlayer(ctx context.Context, p model.Player) error {
	data, err := encodePlayerData(p)
	if err != nil {
		return err
	}
	res, err := s.conn.ExecContext(ctx,
		`UPDATE players SET display_name = ?, role = ?, data = ?, gems = ?, level = ?,
		 exp = ?, last_world = ?, updated_at = ?
		 WHERE user_id = ?`,
		p.DisplayName, p.Role, data, p.Gems, p.Level, p.Exp, p.LastWorld, time.Now().UTC(), p.UserID,
	)
	if err != nil {
		return fmt.Errorf("saving player %q: %w", p.Name, err)
	}
	return affected(res, "saving player "+p.Name)
}

// SetPassword replaces the password hash of userID.
func (s *SQLite) SetPassword(ctx context.Context, userID, hash string) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE players SET password_hash = ?, updated_at = ? WHERE user_id = ?`,
		hash, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("setting password of %q: %w", userID, err)
	}
	return affected(res, "setting password of "+userID)
}

func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// GetWorld loads the world named name, or returns ErrNotFound.
func (s *SQLite) GetWorld(ctx context.Context, name string) (*world.World, error) {
	row, err := scanWorld(s.conn.QueryRowContext(ctx,
		`SELECT `+worldColumns+` FROM worlds WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("world %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying world %q: %w", name, err)
	}
	return decodeWorld(row)
}

// SaveWorld upserts w.
func (s *SQLite) SaveWorld(ctx context.Context, w *world.World) error {
	row, err := encodeWorld(w)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO worlds (`+worldColumns+`, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		   width = excluded.width, height = excluded.height,
		   owner_id = excluded.owner_id, lock_index = excluded.lock_index,
		   weather = excluded.weather, tiles = excluded.tiles,
		   extras = excluded.extras, dropped = excluded.dropped,
		   updated_at = excluded.updated_at`,
		row.Name, row.Width, row.Height, row.OwnerID, row.LockIndex, row.Weather,
		row.Tiles, row.Extras, row.Dropped, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving world %q: %w", w.Name, err)
	}
	return nil
}

// GetSession returns the session of token, or ErrNotFound.
func (s *SQLite) GetSession(ctx context.Context, token string) (model.Session, error) {
	sess := model.Session{Token: token}
	var expires sql.NullTime
	err := s.conn.QueryRowContext(ctx,
		`SELECT user_id, username, expires_at FROM sessions WHERE token = ?`, token,
	).Scan(&sess.UserID, &sess.Username, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, ErrNotFound
	}
	if err != nil {
		return sess, fmt.Errorf("querying session: %w", err)
	}
	if expires.Valid {
		sess.ExpiresAt = expires.Time
	}
	return sess, nil
}

// CreateSession inserts sess.
func (s *SQLite) CreateSession(ctx context.Context, sess model.Session) error {
	expires := sql.NullTime{Time: sess.ExpiresAt.UTC(), Valid: !sess.ExpiresAt.IsZero()}
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, username, expires_at) VALUES (?, ?, ?, ?)`,
		sess.Token, sess.UserID, sess.Username, expires)
	if err != nil {
		return fmt.Errorf("creating session for %q: %w", sess.UserID, err)
	}
	return nil
}
