package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// PoolAdapter exposes a *pgxpool.Pool as pgseed.DBConnection so that the
// database manager can be tested without a server.
// Safe for concurrent use.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

// NewPoolAdapter wraps pool.
func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (p *PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p *PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) pgseed.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Acquire obtains a dedicated connection from the pool.
func (p *PoolAdapter) Acquire(ctx context.Context) (pgseed.PooledConnection, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Verify PoolAdapter implements DBConnection at compile time
var _ pgseed.DBConnection = (*PoolAdapter)(nil)
