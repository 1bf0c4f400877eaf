package manager_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgseed/internal/db/manager"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// mockDBConnection is a test double for pgseed.DBConnection
type mockDBConnection struct {
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgseed.Row
	acquireFunc  func(ctx context.Context) (pgseed.PooledConnection, error)
}

func (m *mockDBConnection) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockDBConnection) QueryRow(ctx context.Context, sql string, args ...any) pgseed.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{}
}

func (m *mockDBConnection) Acquire(ctx context.Context) (pgseed.PooledConnection, error) {
	if m.acquireFunc != nil {
		return m.acquireFunc(ctx)
	}
	return &mockPooledConnection{}, nil
}

// mockRow is a test double for pgseed.Row
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.scanFunc != nil {
		return m.scanFunc(dest...)
	}
	return nil
}

// mockPooledConnection is a test double for pgseed.PooledConnection
type mockPooledConnection struct {
	execFunc    func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	releaseFunc func()
}

func (m *mockPooledConnection) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockPooledConnection) Release() {
	if m.releaseFunc != nil {
		m.releaseFunc()
	}
}

// recordingConn captures SQL sent through an acquired connection.
func recordingConn(executed *string, released *bool, execErr error) *mockDBConnection {
	return &mockDBConnection{
		acquireFunc: func(ctx context.Context) (pgseed.PooledConnection, error) {
			return &mockPooledConnection{
				execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
					*executed = sql
					return pgconn.CommandTag{}, execErr
				},
				releaseFunc: func() {
					if released != nil {
						*released = true
					}
				},
			}, nil
		},
	}
}

// scanInto returns a row that stores v into the first destination.
func scanInto[T any](v T) *mockRow {
	return &mockRow{
		scanFunc: func(dest ...any) error {
			if ptr, ok := dest[0].(*T); ok {
				*ptr = v
				return nil
			}
			return errors.New("unexpected scan destination")
		},
	}
}

func TestManager_Create_QuotesName(t *testing.T) {
	testCases := []struct {
		name   string
		dbName string
		want   string
	}{
		{"plain", "sales", `CREATE DATABASE "sales"`},
		{"spaces", "my database", `CREATE DATABASE "my database"`},
		{"embedded quote", `my"database`, `CREATE DATABASE "my""database"`},
		{"semicolon", "my;database", `CREATE DATABASE "my;database"`},
		{"dash", "my-database", `CREATE DATABASE "my-database"`},
		{"uppercase preserved", "Sales2024", `CREATE DATABASE "Sales2024"`},
		{"injection attempt", "test; DROP DATABASE postgres; --", `CREATE DATABASE "test; DROP DATABASE postgres; --"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var executedSQL string
			var released bool
			mockConn := recordingConn(&executedSQL, &released, nil)

			err := manager.New().Create(context.Background(), mockConn, tc.dbName)
			require.NoError(t, err)
			assert.Equal(t, tc.want, executedSQL)
			assert.True(t, released, "acquired connection must be released")
		})
	}
}

func TestManager_Create_DuplicateDatabase(t *testing.T) {
	var executedSQL string
	mockConn := recordingConn(&executedSQL, nil, &pgconn.PgError{Code: "42P04", Message: `database "sales" already exists`})

	err := manager.New().Create(context.Background(), mockConn, "sales")
	require.Error(t, err)
	assert.ErrorIs(t, err, pgseed.ErrDatabaseExists)
	assert.Contains(t, err.Error(), `"sales"`)
}

func TestManager_Create_OtherServerErrorIsWrapped(t *testing.T) {
	var executedSQL string
	pgErr := &pgconn.PgError{Code: "42501", Message: "permission denied to create database"}
	mockConn := recordingConn(&executedSQL, nil, pgErr)

	err := manager.New().Create(context.Background(), mockConn, "sales")
	require.Error(t, err)
	assert.ErrorIs(t, err, pgErr)
	assert.NotErrorIs(t, err, pgseed.ErrDatabaseExists)
}

func TestManager_Create_ConnectionAcquireFailure(t *testing.T) {
	expectedErr := errors.New("pool exhausted")
	mockConn := &mockDBConnection{
		acquireFunc: func(ctx context.Context) (pgseed.PooledConnection, error) {
			return nil, expectedErr
		},
	}

	err := manager.New().Create(context.Background(), mockConn, "mydb")
	assert.ErrorIs(t, err, expectedErr)
}

func TestManager_Grant(t *testing.T) {
	testCases := []struct {
		name string
		db   string
		role string
		want string
	}{
		{"named role", "sales", "app", `GRANT ALL PRIVILEGES ON DATABASE "sales" TO "app"`},
		{"role needing quotes", "sales", `report "ro"`, `GRANT ALL PRIVILEGES ON DATABASE "sales" TO "report ""ro"""`},
		{"public pseudo-role", "sales", "public", `GRANT ALL PRIVILEGES ON DATABASE "sales" TO PUBLIC`},
		{"public uppercase", "sales", "PUBLIC", `GRANT ALL PRIVILEGES ON DATABASE "sales" TO PUBLIC`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var executedSQL string
			mockConn := &mockDBConnection{
				execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
					executedSQL = sql
					return pgconn.CommandTag{}, nil
				},
			}

			require.NoError(t, manager.New().Grant(context.Background(), mockConn, tc.db, tc.role))
			assert.Equal(t, tc.want, executedSQL)
		})
	}
}

func TestManager_Grant_EmptyRole(t *testing.T) {
	err := manager.New().Grant(context.Background(), &mockDBConnection{}, "sales", "")
	assert.ErrorIs(t, err, pgseed.ErrInvalidConfig)
}

func TestManager_Grant_ExecError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42704", Message: `role "ghost" does not exist`}
	mockConn := &mockDBConnection{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, pgErr
		},
	}

	err := manager.New().Grant(context.Background(), mockConn, "sales", "ghost")
	assert.ErrorIs(t, err, pgErr)
}

func TestManager_Drop(t *testing.T) {
	var executedSQL string
	var released bool
	mockConn := recordingConn(&executedSQL, &released, nil)

	require.NoError(t, manager.New().Drop(context.Background(), mockConn, "old sales"))
	assert.Equal(t, `DROP DATABASE "old sales"`, executedSQL)
	assert.True(t, released)
}

func TestManager_Drop_NonExistentDatabase(t *testing.T) {
	var executedSQL string
	mockConn := recordingConn(&executedSQL, nil, errors.New(`database "nonexistent" does not exist`))

	err := manager.New().Drop(context.Background(), mockConn, "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestManager_Drop_ConnectionAcquireFailure(t *testing.T) {
	expectedErr := errors.New("pool exhausted")
	mockConn := &mockDBConnection{
		acquireFunc: func(ctx context.Context) (pgseed.PooledConnection, error) {
			return nil, expectedErr
		},
	}

	err := manager.New().Drop(context.Background(), mockConn, "mydb")
	assert.ErrorIs(t, err, expectedErr)
}

func TestManager_TerminateConnections(t *testing.T) {
	var executedSQL string
	var executedArgs []any

	mockConn := &mockDBConnection{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			executedSQL = sql
			executedArgs = args
			return pgconn.CommandTag{}, nil
		},
	}

	require.NoError(t, manager.New().TerminateConnections(context.Background(), mockConn, "testdb"))
	assert.Contains(t, executedSQL, "pg_terminate_backend")
	assert.Contains(t, executedSQL, "pg_backend_pid()")
	assert.Equal(t, []any{"testdb"}, executedArgs)
}

func TestManager_Exists(t *testing.T) {
	for _, want := range []bool{true, false} {
		var gotArgs []any
		mockConn := &mockDBConnection{
			queryRowFunc: func(ctx context.Context, sql string, args ...any) pgseed.Row {
				gotArgs = args
				return scanInto(want)
			},
		}

		exists, err := manager.New().Exists(context.Background(), mockConn, "mydb")
		require.NoError(t, err)
		assert.Equal(t, want, exists)
		assert.Equal(t, []any{"mydb"}, gotArgs, "name must be a bind parameter")
	}
}

func TestManager_Exists_QueryError(t *testing.T) {
	expectedErr := errors.New("connection lost")
	mockConn := &mockDBConnection{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgseed.Row {
			return &mockRow{scanFunc: func(dest ...any) error { return expectedErr }}
		},
	}

	_, err := manager.New().Exists(context.Background(), mockConn, "mydb")
	assert.ErrorIs(t, err, expectedErr)
}

func TestManager_ServerVersion(t *testing.T) {
	mockConn := &mockDBConnection{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgseed.Row {
			assert.Equal(t, "SELECT version()", sql)
			return scanInto("PostgreSQL 16.4 on x86_64-pc-linux-gnu")
		},
	}

	version, err := manager.New().ServerVersion(context.Background(), mockConn)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(version, "PostgreSQL 16"))
}

func TestManager_CountTables(t *testing.T) {
	mockConn := &mockDBConnection{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgseed.Row {
			assert.Contains(t, sql, "pg_tables")
			assert.Contains(t, sql, "information_schema")
			return scanInto(int64(15))
		},
	}

	n, err := manager.New().CountTables(context.Background(), mockConn)
	require.NoError(t, err)
	assert.Equal(t, 15, n)
}

func TestManager_CountTables_Error(t *testing.T) {
	expectedErr := errors.New("relation does not exist")
	mockConn := &mockDBConnection{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgseed.Row {
			return &mockRow{scanFunc: func(dest ...any) error { return expectedErr }}
		},
	}

	_, err := manager.New().CountTables(context.Background(), mockConn)
	assert.ErrorIs(t, err, expectedErr)
}
