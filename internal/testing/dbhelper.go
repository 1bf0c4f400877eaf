// Package testing holds helpers for integration tests that need a real server.
package testing

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgseed/internal/db"
	"github.com/vvka-141/pgseed/internal/db/manager"
	"github.com/vvka-141/pgseed/internal/files/scanner"
	"github.com/vvka-141/pgseed/internal/logging"
	"github.com/vvka-141/pgseed/internal/restoretool"
	"github.com/vvka-141/pgseed/internal/services"
	"github.com/vvka-141/pgseed/internal/testinfra"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// EnvTestConn points integration tests at an existing server instead of a container.
const EnvTestConn = "PGSEED_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainer     *testinfra.PostgresContainer
	testContainerErr  error
)

func getOrStartTestContainer() (*testinfra.PostgresContainer, error) {
	testContainerOnce.Do(func() {
		testContainer, testContainerErr = testinfra.StartSimplePostgres(context.Background())
	})
	return testContainer, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: PGSEED_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(EnvTestConn); connString != "" {
		return connString
	}

	ctr, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", EnvTestConn, err)
	}
	return ctr.ConnString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
// Returns the test connection string if available, otherwise skips the test.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// RequireTool skips the test unless name is on PATH and returns its location.
func RequireTool(t *testing.T, name string) string {
	t.Helper()

	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not found on PATH", name)
	}
	return path
}

// NewTestSeeder creates a SeedService wired to the real connector, manager
// and pg_restore, answering overwrite prompts with approve.
func NewTestSeeder(t *testing.T, options pgseed.RestoreOptions, approve bool) *services.SeedService {
	t.Helper()

	logger := logging.NewNullLogger()
	return services.NewSeedService(
		func(cfg *pgseed.ConnectionConfig, credentials pgseed.Credentials) pgseed.Connector {
			return db.NewConnector(cfg, credentials, db.WithLogger(logger))
		},
		func(cfg *pgseed.ConnectionConfig) (pgseed.Credentials, error) {
			return db.NewCredentials(cfg, logger)
		},
		StaticApprover(approve),
		logger,
		scanner.NewScanner(),
		manager.New(),
		restoretool.New(options, logger, false),
	)
}

// StaticApprover answers every overwrite request with the same decision.
type StaticApprover bool

// RequestApproval returns the fixed decision.
func (a StaticApprover) RequestApproval(ctx context.Context, dbName string) (bool, error) {
	return bool(a), nil
}

// CreateTestDB creates a test database with the given name and drops it when the test ends.
func CreateTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect for test DB creation: %v", err)
	}
	defer pool.Close()

	// Leftovers from an interrupted run would fail CREATE DATABASE
	CleanupTestDB(t, connString, dbName)

	if _, err := pool.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}
	t.Logf("✓ Created test database %s", dbName)

	t.Cleanup(func() { CleanupTestDB(t, connString, dbName) })
}

// CleanupTestDB drops the test database.
// Safe to call multiple times (uses DROP DATABASE IF EXISTS).
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Logf("Warning: Failed to connect for cleanup: %v", err)
		return
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()
	`, dbName)
	if err != nil {
		t.Logf("Warning: Failed to terminate connections to %s: %v", dbName, err)
	}

	if _, err := pool.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
	}
}

// GetTestPool creates a connection pool to the specified database for testing.
// The pool is automatically closed when the test completes.
func GetTestPool(t *testing.T, connString, dbName string) *pgxpool.Pool {
	t.Helper()

	config, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), db.BuildConnectionString(db.WithDatabase(config, dbName)))
	if err != nil {
		t.Fatalf("Failed to create connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// CreateArchive creates dbName, runs setupSQL in it and dumps it to
// dir/<archiveName> in tar format. The source database is dropped afterwards.
// The dump runs inside the helper's container when there is one, otherwise
// with pg_dump from PATH.
func CreateArchive(t *testing.T, connString, dbName, setupSQL, dir, archiveName string) string {
	t.Helper()

	ctx := context.Background()
	CreateTestDB(t, connString, dbName)

	pool := GetTestPool(t, connString, dbName)
	if _, err := pool.Exec(ctx, setupSQL); err != nil {
		t.Fatalf("Failed to populate %s: %v", dbName, err)
	}
	pool.Close()

	path := filepath.Join(dir, archiveName)
	if os.Getenv(EnvTestConn) == "" && testContainer != nil {
		if err := testContainer.DumpDatabase(ctx, dbName, path); err != nil {
			t.Fatalf("Failed to dump %s: %v", dbName, err)
		}
	} else {
		dumpWithHostTool(t, connString, dbName, path)
	}

	CleanupTestDB(t, connString, dbName)
	return path
}

func dumpWithHostTool(t *testing.T, connString, dbName, path string) {
	t.Helper()

	pgDump := RequireTool(t, "pg_dump")
	config, err := db.ParseConnectionString(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}

	cmd := exec.Command(pgDump, "--format", "tar", "--file", path, "--no-password",
		db.BuildConnectionString(db.WithDatabase(config, dbName)))
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("pg_dump %s failed: %v\n%s", dbName, err, out)
	}
}
