package restoretool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/pgseed/internal/logging"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// EnvRestoreBinary overrides the pg_restore executable when no binary is configured.
const EnvRestoreBinary = "PGSEED_PG_RESTORE"

// waitDelay bounds how long Wait blocks on the output pipes after the child
// was killed by a cancelled context.
const waitDelay = 5 * time.Second

// managedEnv lists the libpq variables set by the runner. Inherited values
// are removed first so a stale PGPASSWORD or PGDATABASE cannot leak in.
var managedEnv = []string{
	"PGPASSWORD",
	"PGSSLMODE",
	"PGAPPNAME",
	"PGCONNECT_TIMEOUT",
	"PGSSLCERT",
	"PGSSLKEY",
	"PGSSLROOTCERT",
	"PGDATABASE",
	"PGSERVICE",
}

// additionalParamEnv maps connection string parameters to their libpq variables.
var additionalParamEnv = map[string]string{
	"sslcert":     "PGSSLCERT",
	"sslkey":      "PGSSLKEY",
	"sslrootcert": "PGSSLROOTCERT",
	"sslcrl":      "PGSSLCRL",
	"options":     "PGOPTIONS",
}

// CommandFactory builds the child process. Tests substitute a helper process.
type CommandFactory func(ctx context.Context, name string, args ...string) *exec.Cmd

// PgRestore runs the pg_restore utility.
type PgRestore struct {
	options pgseed.RestoreOptions
	logger  pgseed.Logger
	verbose bool

	command  CommandFactory
	lookPath func(file string) (string, error)
	environ  func() []string
	getenv   func(key string) string

	resolved string
}

// Option configures a PgRestore.
type Option func(*PgRestore)

// WithCommandFactory replaces exec.CommandContext.
func WithCommandFactory(f CommandFactory) Option {
	return func(p *PgRestore) { p.command = f }
}

// WithLookPath replaces exec.LookPath.
func WithLookPath(f func(file string) (string, error)) Option {
	return func(p *PgRestore) { p.lookPath = f }
}

// WithEnviron replaces the environment inherited by the child and consulted for EnvRestoreBinary.
func WithEnviron(env []string) Option {
	return func(p *PgRestore) {
		p.environ = func() []string { return env }
		p.getenv = func(key string) string {
			for i := len(env) - 1; i >= 0; i-- {
				if k, v, ok := strings.Cut(env[i], "="); ok && k == key {
					return v
				}
			}
			return ""
		}
	}
}

// New creates a PgRestore. With verbose set, pg_restore runs with --verbose.
func New(options pgseed.RestoreOptions, logger pgseed.Logger, verbose bool, opts ...Option) *PgRestore {
	p := &PgRestore{
		options:  options,
		logger:   logger,
		verbose:  verbose,
		command:  exec.CommandContext,
		lookPath: exec.LookPath,
		environ:  os.Environ,
		getenv:   os.Getenv,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNullLogger()
	}
	return p
}

// Available resolves the executable from the configured binary,
// $PGSEED_PG_RESTORE, or pg_restore on PATH, in that order.
func (p *PgRestore) Available() (string, error) {
	if p.resolved != "" {
		return p.resolved, nil
	}

	binary := p.options.Binary
	if binary == "" {
		binary = p.getenv(EnvRestoreBinary)
	}
	if binary == "" {
		binary = pgseed.DefaultRestoreBinary
	}

	path, err := p.lookPath(binary)
	if err != nil {
		return "", fmt.Errorf("restore utility %q not found (install the PostgreSQL client tools or set --pg-restore): %v: %w",
			binary, err, pgseed.ErrInvalidConfig)
	}

	p.resolved = path
	return path, nil
}

// Restore runs pg_restore for one archive and waits for it to exit.
func (p *PgRestore) Restore(ctx context.Context, req pgseed.RestoreRequest) error {
	if req.ArchivePath == "" || req.Database == "" || req.Connection == nil {
		return fmt.Errorf("restore request needs an archive, a database and a connection: %w", pgseed.ErrInvalidConfig)
	}

	path, err := p.Available()
	if err != nil {
		return err
	}

	args := p.Args(req)
	cmd := p.command(ctx, path, args...)
	cmd.Env = p.Env(req.Connection)
	cmd.WaitDelay = waitDelay

	stdout := logging.NewLineWriter(func(line string) {
		p.logger.Verbose("pg_restore: %s", line)
	}, 0)
	stderr := logging.NewLineWriter(func(line string) {
		if strings.Contains(line, "warning:") {
			p.logger.Info("%s", line)
			return
		}
		p.logger.Verbose("%s", line)
	}, pgseed.StderrTailLines)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	p.logger.Verbose("Running %s %s", path, strings.Join(args, " "))

	err = cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("pg_restore of %q into %q interrupted: %w", req.ArchivePath, req.Database, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("pg_restore exited with code %d restoring %q into %q: %w%s",
			exitErr.ExitCode(), req.ArchivePath, req.Database, pgseed.ErrRestoreFailed, formatTail(stderr.Tail()))
	}
	return fmt.Errorf("failed to run pg_restore: %w: %w", pgseed.ErrRestoreFailed, err)
}

// Args builds the pg_restore argument list. It never contains the password.
func (p *PgRestore) Args(req pgseed.RestoreRequest) []string {
	conn := req.Connection
	var args []string
	if conn.Host != "" {
		args = append(args, "--host", conn.Host)
	}
	if conn.Port > 0 {
		args = append(args, "--port", strconv.Itoa(conn.Port))
	}
	if conn.Username != "" {
		args = append(args, "--username", conn.Username)
	}
	args = append(args, "--dbname", dbnameConninfo(req.Database), "--exit-on-error", "--no-password")

	if p.options.NoOwner {
		args = append(args, "--no-owner")
	}
	if p.options.NoPrivileges {
		args = append(args, "--no-privileges")
	}
	if p.options.Jobs > 0 {
		args = append(args, "--jobs", strconv.Itoa(p.options.Jobs))
	}
	if p.verbose {
		args = append(args, "--verbose")
	}

	return append(args, archiveArg(req.ArchivePath))
}

// Env builds the child environment: the inherited environment without the
// variables the runner manages, plus the libpq settings for conn.
func (p *PgRestore) Env(conn *pgseed.ConnectionConfig) []string {
	base := p.environ()
	env := make([]string, 0, len(base)+8)
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if isManaged(key) {
			continue
		}
		env = append(env, kv)
	}

	set := func(key, value string) {
		if value != "" {
			env = append(env, key+"="+value)
		}
	}
	set("PGPASSWORD", conn.Password)
	set("PGSSLMODE", conn.SSLMode)
	set("PGAPPNAME", conn.AppName)
	if secs := conn.ConnectTimeoutSeconds(); secs > 0 {
		set("PGCONNECT_TIMEOUT", strconv.Itoa(secs))
	}
	for param, key := range additionalParamEnv {
		set(key, conn.AdditionalParams[param])
	}
	return env
}

// dbnameConninfo wraps name as a quoted conninfo value. pg_restore expands a
// --dbname containing '=' as a full connection string, so a bare name such as
// "host=elsewhere" would redirect the restore.
func dbnameConninfo(name string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(name)
	return "dbname='" + escaped + "'"
}

func isManaged(key string) bool {
	for _, k := range managedEnv {
		if k == key {
			return true
		}
	}
	for _, k := range additionalParamEnv {
		if k == key {
			return true
		}
	}
	return false
}

// archiveArg keeps a relative path that starts with "-" from being read as a flag.
func archiveArg(path string) string {
	if strings.HasPrefix(path, "-") {
		return "." + string(filepath.Separator) + path
	}
	return path
}

func formatTail(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return "\n  " + strings.Join(lines, "\n  ")
}

// Verify PgRestore implements pgseed.Restorer at compile time
var _ pgseed.Restorer = (*PgRestore)(nil)
