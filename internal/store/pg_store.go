package store

import (
	"context"
	"errors"
	"fmt"

	storeerrors "github.com/abgdnv/storefront/internal/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ CartStore = (*PgStore)(nil)

const (
	loadCartSQL = `SELECT payload FROM cart_snapshots WHERE cart_key = $1`
	saveCartSQL = `INSERT INTO cart_snapshots (cart_key, payload)
VALUES ($1, $2)
ON CONFLICT (cart_key) DO UPDATE
SET payload = EXCLUDED.payload,
    version = cart_snapshots.version + 1,
    updated_at = now()`
)

// PgStore implements CartStore using PostgreSQL as the data store.
type PgStore struct {
	db  *pgxpool.Pool
	key string
}

// NewPgStore creates a new instance of CartStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool, key string) *PgStore {
	return &PgStore{
		db:  dbp,
		key: key,
	}
}

// Load returns ErrCartNotFound if no snapshot exists for the key.
func (p *PgStore) Load(ctx context.Context) ([]byte, error) {
	var payload []byte
	if err := p.db.QueryRow(ctx, loadCartSQL, p.key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storeerrors.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	return payload, nil
}

// Save upserts the snapshot and bumps its version.
func (p *PgStore) Save(ctx context.Context, data []byte) error {
	if _, err := p.db.Exec(ctx, saveCartSQL, p.key, data); err != nil {
		return fmt.Errorf("failed to save cart snapshot: %w", err)
	}
	return nil
}
