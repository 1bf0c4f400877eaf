package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

const (
	queryDatabaseExists       = "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)"
	queryServerVersion        = "SELECT version()"
	queryTerminateConnections = `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`
	queryCountTables = `
		SELECT count(*)
		FROM pg_catalog.pg_tables
		WHERE schemaname NOT IN ('pg_catalog', 'information_schema')
	`
)

// SQLSTATE duplicate_database
const codeDuplicateDatabase = "42P04"

// Manager implements database lifecycle operations using the DBConnection abstraction.
// Stateless and safe for concurrent use; thread safety depends on the injected DBConnection.
type Manager struct{}

// New creates a new DatabaseManager instance.
func New() pgseed.DatabaseManager {
	return &Manager{}
}

// Exists checks if a database exists.
func (m *Manager) Exists(ctx context.Context, conn pgseed.DBConnection, dbName string) (bool, error) {
	var exists bool
	err := conn.QueryRow(ctx, queryDatabaseExists, dbName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// Create creates a new database. A concurrent creation of the same name
// surfaces as pgseed.ErrDatabaseExists.
func (m *Manager) Create(ctx context.Context, conn pgseed.DBConnection, dbName string) error {
	err := execDedicated(ctx, conn, fmt.Sprintf("CREATE DATABASE %s", quoteIdent(dbName)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeDuplicateDatabase {
			return fmt.Errorf("failed to create database %q: %w", dbName, pgseed.ErrDatabaseExists)
		}
		return fmt.Errorf("failed to create database %q: %w", dbName, err)
	}
	return nil
}

// Grant grants ALL PRIVILEGES on the database to role.
// The role name PUBLIC (any case) is the pseudo-role, not a quoted identifier.
func (m *Manager) Grant(ctx context.Context, conn pgseed.DBConnection, dbName, role string) error {
	if role == "" {
		return fmt.Errorf("grant on database %q: role is required: %w", dbName, pgseed.ErrInvalidConfig)
	}

	grantee := quoteIdent(role)
	if strings.EqualFold(role, "public") {
		grantee = "PUBLIC"
	}

	query := fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", quoteIdent(dbName), grantee)
	if _, err := conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to grant privileges on database %q to %q: %w", dbName, role, err)
	}
	return nil
}

// Drop drops the specified database.
func (m *Manager) Drop(ctx context.Context, conn pgseed.DBConnection, dbName string) error {
	if err := execDedicated(ctx, conn, fmt.Sprintf("DROP DATABASE %s", quoteIdent(dbName))); err != nil {
		return fmt.Errorf("failed to drop database %q: %w", dbName, err)
	}
	return nil
}

// TerminateConnections terminates all connections to the specified database.
func (m *Manager) TerminateConnections(ctx context.Context, conn pgseed.DBConnection, dbName string) error {
	_, err := conn.Exec(ctx, queryTerminateConnections, dbName)
	if err != nil {
		return fmt.Errorf("failed to terminate connections to database %q: %w", dbName, err)
	}
	return nil
}

// ServerVersion returns the server's version() string.
func (m *Manager) ServerVersion(ctx context.Context, conn pgseed.DBConnection) (string, error) {
	var version string
	if err := conn.QueryRow(ctx, queryServerVersion).Scan(&version); err != nil {
		return "", fmt.Errorf("failed to read server version: %w", err)
	}
	return version, nil
}

// CountTables counts user tables in the database conn is connected to.
func (m *Manager) CountTables(ctx context.Context, conn pgseed.DBConnection) (int, error) {
	var n int64
	if err := conn.QueryRow(ctx, queryCountTables).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tables: %w", err)
	}
	return int(n), nil
}

// execDedicated runs sql on an acquired connection, outside any transaction block.
func execDedicated(ctx context.Context, conn pgseed.DBConnection, sql string) error {
	pooledConn, err := conn.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer pooledConn.Release()

	_, err = pooledConn.Exec(ctx, sql)
	return err
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Verify Manager implements the DatabaseManager interface at compile time
var _ pgseed.DatabaseManager = (*Manager)(nil)
