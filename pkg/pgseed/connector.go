package pgseed

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector establishes database connections.
// Implementations differ in how the password is obtained
// (static credentials or short-lived cloud tokens).
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The caller closes the returned pool.
	Connect(ctx context.Context) (*pgxpool.Pool, error)

	// ForDatabase returns a Connector for another database on the same server,
	// sharing credentials and retry policy.
	ForDatabase(database string) Connector
}

// Credentials supplies the password presented to the server.
// For cloud authentication this is a short-lived token, so callers ask
// again before every new connection or restore command.
type Credentials interface {
	Password(ctx context.Context) (string, error)
}

// ConnectorFactory builds a Connector for cfg, whose Database is the one connected to.
type ConnectorFactory func(cfg *ConnectionConfig, credentials Credentials) Connector

// CredentialsFactory builds the Credentials for cfg's AuthMethod.
type CredentialsFactory func(cfg *ConnectionConfig) (Credentials, error)
