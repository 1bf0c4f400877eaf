package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

type mockConnector struct {
	database string
}

func (m *mockConnector) Connect(_ context.Context) (*pgxpool.Pool, error) {
	return nil, fmt.Errorf("mockConnector cannot open real pools")
}

func (m *mockConnector) ForDatabase(database string) pgseed.Connector {
	return &mockConnector{database: database}
}

// fakeConn identifies which database an operation ran against.
type fakeConn struct {
	database string
}

func (f *fakeConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeConn) QueryRow(context.Context, string, ...any) pgseed.Row {
	return nil
}

func (f *fakeConn) Acquire(context.Context) (pgseed.PooledConnection, error) {
	return nil, fmt.Errorf("not supported")
}

type staticCredentials string

func (s staticCredentials) Password(context.Context) (string, error) {
	return string(s), nil
}

type mockApprover struct {
	approved bool
	err      error
	asked    []string
}

func (m *mockApprover) RequestApproval(_ context.Context, dbName string) (bool, error) {
	m.asked = append(m.asked, dbName)
	return m.approved, m.err
}

type mockScanner struct {
	archives  []pgseed.Archive
	scanErr   error
	resolved  map[string]pgseed.Archive
	scanCalls []string
}

func (m *mockScanner) Scan(dir, pattern string) ([]pgseed.Archive, error) {
	m.scanCalls = append(m.scanCalls, dir+"|"+pattern)
	return m.archives, m.scanErr
}

func (m *mockScanner) Resolve(path string) (pgseed.Archive, error) {
	a, ok := m.resolved[path]
	if !ok {
		return pgseed.Archive{}, fmt.Errorf("archive %q: %w", path, pgseed.ErrArchiveNotFound)
	}
	return a, nil
}

func (m *mockScanner) Checksum(a *pgseed.Archive) error {
	a.Checksum = strings.Repeat("ab", 32)
	return nil
}

// recordingDBManager records every operation as "<op> <args>" in call order.
type recordingDBManager struct {
	existing map[string]bool
	tables   map[string]int
	errs     map[string]error
	ops      []string
}

func newRecordingDBManager() *recordingDBManager {
	return &recordingDBManager{
		existing: map[string]bool{},
		tables:   map[string]int{},
		errs:     map[string]error{},
	}
}

func (m *recordingDBManager) record(op string) error {
	m.ops = append(m.ops, op)
	return m.errs[op]
}

func (m *recordingDBManager) Exists(_ context.Context, _ pgseed.DBConnection, dbName string) (bool, error) {
	if err := m.record("exists " + dbName); err != nil {
		return false, err
	}
	return m.existing[dbName], nil
}

func (m *recordingDBManager) Create(_ context.Context, _ pgseed.DBConnection, dbName string) error {
	if err := m.record("create " + dbName); err != nil {
		return err
	}
	m.existing[dbName] = true
	return nil
}

func (m *recordingDBManager) Grant(_ context.Context, _ pgseed.DBConnection, dbName, role string) error {
	return m.record("grant " + dbName + " " + role)
}

func (m *recordingDBManager) Drop(_ context.Context, _ pgseed.DBConnection, dbName string) error {
	if err := m.record("drop " + dbName); err != nil {
		return err
	}
	delete(m.existing, dbName)
	return nil
}

func (m *recordingDBManager) TerminateConnections(_ context.Context, _ pgseed.DBConnection, dbName string) error {
	return m.record("terminate " + dbName)
}

func (m *recordingDBManager) ServerVersion(_ context.Context, _ pgseed.DBConnection) (string, error) {
	return "PostgreSQL 16.4", m.record("version")
}

func (m *recordingDBManager) CountTables(_ context.Context, conn pgseed.DBConnection) (int, error) {
	database := conn.(*fakeConn).database
	if err := m.record("count " + database); err != nil {
		return 0, err
	}
	return m.tables[database], nil
}

type mockRestorer struct {
	availableErr error
	failOn       map[string]error
	requests     []pgseed.RestoreRequest
	deadlines    []bool
	availCalls   int
}

func (m *mockRestorer) Available() (string, error) {
	m.availCalls++
	if m.availableErr != nil {
		return "", m.availableErr
	}
	return "/usr/bin/pg_restore", nil
}

func (m *mockRestorer) Restore(ctx context.Context, req pgseed.RestoreRequest) error {
	m.requests = append(m.requests, req)
	_, hasDeadline := ctx.Deadline()
	m.deadlines = append(m.deadlines, hasDeadline)
	return m.failOn[req.Database]
}

type mockLogger struct {
	mu    sync.Mutex
	lines []string
}

func (m *mockLogger) log(level, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, level+" "+fmt.Sprintf(format, args...))
}

func (m *mockLogger) Verbose(format string, args ...interface{}) { m.log("VERBOSE", format, args...) }
func (m *mockLogger) Info(format string, args ...interface{})    { m.log("INFO", format, args...) }
func (m *mockLogger) Error(format string, args ...interface{})   { m.log("ERROR", format, args...) }

func (m *mockLogger) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.lines, "\n")
}
