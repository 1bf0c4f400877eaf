package pgseed

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBConnection abstracts the connection operations needed by DatabaseManager,
// keeping pgx pool types out of the public API.
type DBConnection interface {
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow executes a query that is expected to return at most one row.
	// Errors are deferred until Row's Scan method is called.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Acquire obtains a dedicated connection for statements that cannot
	// run inside a transaction block (CREATE DATABASE, DROP DATABASE).
	// Caller must call Release() on the returned PooledConnection.
	Acquire(ctx context.Context) (PooledConnection, error)
}

// Row represents a single row returned by QueryRow.
type Row interface {
	Scan(dest ...any) error
}

// PooledConnection represents a connection acquired from a pool.
type PooledConnection interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Release returns the connection to the pool.
	Release()
}
