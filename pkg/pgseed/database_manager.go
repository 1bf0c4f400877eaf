package pgseed

import (
	"context"
)

// DatabaseManager defines server-level database operations.
// All database and role names are quoted by the implementation.
type DatabaseManager interface {
	// Exists checks if a database exists.
	Exists(ctx context.Context, conn DBConnection, dbName string) (bool, error)

	// Create creates a new, empty database.
	Create(ctx context.Context, conn DBConnection, dbName string) error

	// Grant grants ALL PRIVILEGES on the database to the role.
	Grant(ctx context.Context, conn DBConnection, dbName, role string) error

	// Drop drops the specified database.
	Drop(ctx context.Context, conn DBConnection, dbName string) error

	// TerminateConnections terminates all other sessions connected to the database.
	TerminateConnections(ctx context.Context, conn DBConnection, dbName string) error

	// ServerVersion returns the server's version() string.
	ServerVersion(ctx context.Context, conn DBConnection) (string, error)

	// CountTables counts user tables in the connected database,
	// excluding pg_catalog and information_schema.
	CountTables(ctx context.Context, conn DBConnection) (int, error)
}
