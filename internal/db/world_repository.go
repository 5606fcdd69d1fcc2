package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/growgo/internal/world"
)

const worldColumns = `name, width, height, owner_id, lock_index, weather, tiles, extras, dropped`

func scanWorld(row rowScanner) (worldRow, error) {
	var r worldRow
	err := row.Scan(&r.Name, &r.Width, &r.Height, &r.OwnerID, &r.LockIndex, &r.Weather,
		&r.Tiles, &r.Extras, &r.Dropped)
	return r, err
}

// PostgresWorldRepository stores worlds in PostgreSQL.
type PostgresWorldRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresWorldRepository creates a world repository over pool.
func NewPostgresWorldRepository(pool *pgxpool.Pool) *PostgresWorldRepository {
	return &PostgresWorldRepository{pool: pool}
}

// GetWorld loads the world named name, or returns ErrNotFound.
func (r *PostgresWorldRepository) GetWorld(ctx context.Context, name string) (*world.World, error) {
	row, err := scanWorld(r.pool.QueryRow(ctx,
		`SELECT `+worldColumns+` FROM worlds WHERE name = $1`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("world %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying world %q: %w", name, err)
	}
	return decodeWorld(row)
}

// SaveWorld upserts w.
func (r *PostgresWorldRepository) SaveWorld(ctx context.Context, w *world.World) error {
	row, err := encodeWorld(w)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO worlds (`+worldColumns+`, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (name) DO UPDATE SET
		   width = EXCLUDED.width, height = EXCLUDED.height,
		   owner_id = EXCLUDED.owner_id, lock_index = EXCLUDED.lock_index,
		   weather = EXCLUDED.weather, tiles = EXCLUDED.tiles,
		   extras = EXCLUDED.extras, dropped = EXCLUDED.dropped,
		   updated_at = EXCLUDED.updated_at`,
		row.Name, row.Width, row.Height, row.OwnerID, row.LockIndex, row.Weather,
		row.Tiles, row.Extras, row.Dropped, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving world %q: %w", w.Name, err)
	}
	return nil
}
