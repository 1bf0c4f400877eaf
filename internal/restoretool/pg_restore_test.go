package restoretool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestHelperProcess stands in for pg_restore. It is only active when the
// runner starts the test binary through helperCommand.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) > 0 {
		args = args[1:]
	}

	switch os.Getenv("HELPER_MODE") {
	case "ok":
		fmt.Printf("ARGS %s\n", strings.Join(args, " "))
		fmt.Printf("PGPASSWORD=%s\n", os.Getenv("PGPASSWORD"))
		fmt.Printf("PGSSLMODE=%s\n", os.Getenv("PGSSLMODE"))
		fmt.Fprintln(os.Stderr, "pg_restore: creating TABLE \"public.actor\"")
		fmt.Fprintln(os.Stderr, "pg_restore: warning: could not set default_table_access_method")
	case "fail":
		for i := 1; i <= 30; i++ {
			fmt.Fprintf(os.Stderr, "pg_restore: line %d\n", i)
		}
		fmt.Fprint(os.Stderr, "pg_restore: error: could not execute query: ERROR:  relation \"actor\" already exists")
		os.Exit(1)
	case "hang":
		time.Sleep(time.Minute)
	default:
		fmt.Fprintf(os.Stderr, "unknown HELPER_MODE %q\n", os.Getenv("HELPER_MODE"))
		os.Exit(2)
	}
}

func helperCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--"}, args...)
	return exec.CommandContext(ctx, os.Args[0], cs...)
}

func foundBinary(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

// recordingLogger captures log lines by level.
type recordingLogger struct {
	mu      sync.Mutex
	verbose []string
	info    []string
}

func (l *recordingLogger) Verbose(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = append(l.verbose, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.info = append(l.info, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) Error(format string, args ...interface{}) {}

func (l *recordingLogger) all() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(append(append([]string{}, l.verbose...), l.info...), "\n")
}

func newHelperRestore(t *testing.T, mode string, options pgseed.RestoreOptions, logger pgseed.Logger) *PgRestore {
	t.Helper()
	return New(options, logger, false,
		WithCommandFactory(helperCommand),
		WithLookPath(foundBinary),
		WithEnviron([]string{
			"GO_WANT_HELPER_PROCESS=1",
			"HELPER_MODE=" + mode,
			"PGPASSWORD=stale-from-parent",
		}),
	)
}

func testRequest() pgseed.RestoreRequest {
	return pgseed.RestoreRequest{
		ArchivePath: "/archives/dvdrental.tar",
		Database:    "dvdrental",
		Connection: &pgseed.ConnectionConfig{
			Host:     "db",
			Port:     5432,
			Username: "postgres",
			Password: "s3cret",
			SSLMode:  "disable",
		},
	}
}

func TestPgRestore_Args(t *testing.T) {
	tests := []struct {
		name    string
		options pgseed.RestoreOptions
		verbose bool
		want    []string
	}{
		{
			name: "defaults",
			want: []string{
				"--host", "db", "--port", "5432", "--username", "postgres",
				"--dbname", "dbname='dvdrental'", "--exit-on-error", "--no-password",
				"/archives/dvdrental.tar",
			},
		},
		{
			name:    "all pass-through options",
			options: pgseed.RestoreOptions{Jobs: 4, NoOwner: true, NoPrivileges: true},
			verbose: true,
			want: []string{
				"--host", "db", "--port", "5432", "--username", "postgres",
				"--dbname", "dbname='dvdrental'", "--exit-on-error", "--no-password",
				"--no-owner", "--no-privileges", "--jobs", "4", "--verbose",
				"/archives/dvdrental.tar",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.options, nil, tt.verbose)
			assert.Equal(t, tt.want, p.Args(testRequest()))
		})
	}
}

func TestPgRestore_Args_NeverContainPassword(t *testing.T) {
	p := New(pgseed.RestoreOptions{}, nil, true)
	for _, arg := range p.Args(testRequest()) {
		assert.NotContains(t, arg, "s3cret")
	}
}

func TestPgRestore_Args_OmitsUnsetConnectionFields(t *testing.T) {
	req := testRequest()
	req.Connection = &pgseed.ConnectionConfig{}
	req.ArchivePath = "-odd.tar"

	args := New(pgseed.RestoreOptions{}, nil, false).Args(req)
	assert.NotContains(t, args, "--host")
	assert.NotContains(t, args, "--port")
	assert.NotContains(t, args, "--username")
	assert.Equal(t, "."+string(os.PathSeparator)+"-odd.tar", args[len(args)-1])
}

func TestPgRestore_Args_QuotesDatabaseName(t *testing.T) {
	tests := []struct {
		name     string
		database string
		want     string
	}{
		{"plain", "sales", `dbname='sales'`},
		{"conninfo lookalike", "host=attacker.example", `dbname='host=attacker.example'`},
		{"full conninfo", "dbname=x host=evil port=1", `dbname='dbname=x host=evil port=1'`},
		{"uri lookalike", "postgresql://evil/x", `dbname='postgresql://evil/x'`},
		{"quote and backslash", `it's\x`, `dbname='it\'s\\x'`},
		{"spaces", "my db", `dbname='my db'`},
	}

	p := New(pgseed.RestoreOptions{}, nil, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testRequest()
			req.Database = tt.database

			args := p.Args(req)
			i := slices.Index(args, "--dbname")
			require.GreaterOrEqual(t, i, 0)
			require.Less(t, i+1, len(args))
			assert.Equal(t, tt.want, args[i+1])
			assert.Equal(t, []string{"--host", "db"}, args[:2], "host must come from the connection only")
		})
	}
}

func TestPgRestore_Env_SubSecondTimeoutRoundsUp(t *testing.T) {
	p := New(pgseed.RestoreOptions{}, nil, false, WithEnviron(nil))
	env := p.Env(&pgseed.ConnectionConfig{ConnectTimeout: 500 * time.Millisecond})
	assert.Contains(t, env, "PGCONNECT_TIMEOUT=1")
	assert.NotContains(t, env, "PGCONNECT_TIMEOUT=0")
}

func TestPgRestore_Env(t *testing.T) {
	p := New(pgseed.RestoreOptions{}, nil, false, WithEnviron([]string{
		"PATH=/usr/bin",
		"PGPASSWORD=stale",
		"PGDATABASE=other",
		"HOME=/root",
	}))
	conn := &pgseed.ConnectionConfig{
		Password:         "s3cret",
		SSLMode:          "verify-full",
		AppName:          "pgseed/1a2b3c4d",
		ConnectTimeout:   10 * time.Second,
		AdditionalParams: map[string]string{"sslrootcert": "/certs/root.crt"},
	}

	env := p.Env(conn)
	assert.Contains(t, env, "PATH=/usr/bin")
	assert.Contains(t, env, "HOME=/root")
	assert.Contains(t, env, "PGPASSWORD=s3cret")
	assert.Contains(t, env, "PGSSLMODE=verify-full")
	assert.Contains(t, env, "PGAPPNAME=pgseed/1a2b3c4d")
	assert.Contains(t, env, "PGCONNECT_TIMEOUT=10")
	assert.Contains(t, env, "PGSSLROOTCERT=/certs/root.crt")
	assert.NotContains(t, env, "PGPASSWORD=stale")
	assert.NotContains(t, env, "PGDATABASE=other")
}

func TestPgRestore_Env_NoPasswordDropsInherited(t *testing.T) {
	p := New(pgseed.RestoreOptions{}, nil, false, WithEnviron([]string{"PGPASSWORD=stale"}))
	env := p.Env(&pgseed.ConnectionConfig{})
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "PGPASSWORD="), "unexpected %s", kv)
	}
}

func TestPgRestore_Available(t *testing.T) {
	t.Run("configured binary wins", func(t *testing.T) {
		var looked string
		p := New(pgseed.RestoreOptions{Binary: "/opt/pg16/bin/pg_restore"}, nil, false,
			WithEnviron([]string{EnvRestoreBinary + "=/env/pg_restore"}),
			WithLookPath(func(file string) (string, error) { looked = file; return file, nil }))

		path, err := p.Available()
		require.NoError(t, err)
		assert.Equal(t, "/opt/pg16/bin/pg_restore", path)
		assert.Equal(t, "/opt/pg16/bin/pg_restore", looked)
	})

	t.Run("environment fallback", func(t *testing.T) {
		p := New(pgseed.RestoreOptions{}, nil, false,
			WithEnviron([]string{EnvRestoreBinary + "=/env/pg_restore"}),
			WithLookPath(func(file string) (string, error) { return file, nil }))

		path, err := p.Available()
		require.NoError(t, err)
		assert.Equal(t, "/env/pg_restore", path)
	})

	t.Run("PATH lookup by default", func(t *testing.T) {
		p := New(pgseed.RestoreOptions{}, nil, false, WithEnviron(nil), WithLookPath(foundBinary))

		path, err := p.Available()
		require.NoError(t, err)
		assert.Equal(t, "/usr/bin/pg_restore", path)
	})

	t.Run("missing binary is a configuration error", func(t *testing.T) {
		p := New(pgseed.RestoreOptions{}, nil, false, WithEnviron(nil),
			WithLookPath(func(file string) (string, error) { return "", exec.ErrNotFound }))

		_, err := p.Available()
		require.Error(t, err)
		assert.ErrorIs(t, err, pgseed.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "pg_restore")
	})

	t.Run("resolved path is cached", func(t *testing.T) {
		calls := 0
		p := New(pgseed.RestoreOptions{}, nil, false, WithEnviron(nil),
			WithLookPath(func(file string) (string, error) { calls++; return "/usr/bin/" + file, nil }))

		_, _ = p.Available()
		_, _ = p.Available()
		assert.Equal(t, 1, calls)
	})
}

func TestPgRestore_Restore_Success(t *testing.T) {
	logger := &recordingLogger{}
	p := newHelperRestore(t, "ok", pgseed.RestoreOptions{NoOwner: true}, logger)

	require.NoError(t, p.Restore(context.Background(), testRequest()))

	out := logger.all()
	assert.Contains(t, out, "--dbname dbname='dvdrental' --exit-on-error --no-password --no-owner /archives/dvdrental.tar")
	assert.Contains(t, out, "PGPASSWORD=s3cret", "password must reach the child through the environment")
	assert.Contains(t, out, "PGSSLMODE=disable")
	assert.Contains(t, out, `creating TABLE "public.actor"`)
	assert.NotContains(t, out, "stale-from-parent")

	logger.mu.Lock()
	defer logger.mu.Unlock()
	require.Len(t, logger.info, 1)
	assert.Contains(t, logger.info[0], "warning:")
}

func TestPgRestore_Restore_FailureReportsExitCodeAndTail(t *testing.T) {
	p := newHelperRestore(t, "fail", pgseed.RestoreOptions{}, nil)

	err := p.Restore(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, pgseed.ErrRestoreFailed)

	msg := err.Error()
	assert.Contains(t, msg, "exited with code 1")
	assert.Contains(t, msg, `"/archives/dvdrental.tar"`)
	assert.Contains(t, msg, `"dvdrental"`)
	assert.Contains(t, msg, `relation "actor" already exists`, "unterminated last line must be flushed")
	assert.Contains(t, msg, "line 30")
	assert.NotContains(t, msg, "line 11\n", "only the last lines are kept")
	assert.Equal(t, pgseed.StderrTailLines, strings.Count(msg, "\n  "))
}

func TestPgRestore_Restore_CancelKillsChild(t *testing.T) {
	p := newHelperRestore(t, "hang", pgseed.RestoreOptions{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Restore(ctx, testRequest()) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, errors.Is(err, pgseed.ErrRestoreFailed))
	case <-time.After(30 * time.Second):
		t.Fatal("Restore did not return after cancellation")
	}
}

func TestPgRestore_Restore_InvalidRequest(t *testing.T) {
	p := newHelperRestore(t, "ok", pgseed.RestoreOptions{}, nil)

	err := p.Restore(context.Background(), pgseed.RestoreRequest{ArchivePath: "a.tar"})
	assert.ErrorIs(t, err, pgseed.ErrInvalidConfig)
}

func TestPgRestore_Restore_StartFailure(t *testing.T) {
	p := New(pgseed.RestoreOptions{}, nil, false,
		WithEnviron(nil),
		WithLookPath(func(file string) (string, error) { return "/nonexistent/pg_restore", nil }))

	err := p.Restore(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, pgseed.ErrRestoreFailed)
}
