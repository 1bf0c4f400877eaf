// Package testinfra starts disposable PostgreSQL servers for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// PostgresImage is the official image, so pg_dump inside the container
	// matches the server version.
	PostgresImage    = "postgres:17"
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	PostgresDB       = "postgres"

	containerCertDir  = "/tmp/testcontainers-go/postgres"
	sslEntrypointPath = "/usr/local/bin/docker-entrypoint-ssl.bash"
	containerDumpDir  = "/tmp"
)

// PostgresContainer is a running server plus a connection string for it.
type PostgresContainer struct {
	*postgres.PostgresContainer
	ConnString string
}

// StartSimplePostgres starts a server without TLS.
func StartSimplePostgres(ctx context.Context) (*PostgresContainer, error) {
	return run(ctx, "sslmode=disable")
}

// StartPostgres starts a server that accepts both plain and TLS connections
// with a certificate signed by certPaths.CACert.
func StartPostgres(ctx context.Context, certPaths *CertPaths) (*PostgresContainer, error) {
	confPath, err := writeSSLConfig(filepath.Dir(certPaths.CACert))
	if err != nil {
		return nil, err
	}
	return run(ctx, "sslmode=disable",
		postgres.WithSSLCert(certPaths.CACert, certPaths.ServerCert, certPaths.ServerKey),
		postgres.WithConfigFile(confPath),
		// WithSSLCert sets entrypoint to "sh" which fails on Debian (dash doesn't support pipefail).
		testcontainers.WithEntrypoint("bash", sslEntrypointPath),
	)
}

// StartMTLSPostgres starts a server that only accepts TLS connections
// authenticated by a client certificate.
func StartMTLSPostgres(ctx context.Context, certPaths *CertPaths) (*PostgresContainer, error) {
	dir := filepath.Dir(certPaths.CACert)

	confPath, err := writeSSLConfig(dir)
	if err != nil {
		return nil, err
	}
	initScript, err := writeMTLSInitScript(dir)
	if err != nil {
		return nil, err
	}

	return run(ctx, "sslmode=verify-ca",
		postgres.WithSSLCert(certPaths.CACert, certPaths.ServerCert, certPaths.ServerKey),
		postgres.WithConfigFile(confPath),
		postgres.WithInitScripts(initScript),
		testcontainers.WithEntrypoint("bash", sslEntrypointPath),
	)
}

func run(ctx context.Context, connArgs string, opts ...testcontainers.ContainerCustomizer) (*PostgresContainer, error) {
	opts = append([]testcontainers.ContainerCustomizer{
		postgres.WithUsername(PostgresUser),
		postgres.WithPassword(PostgresPassword),
		postgres.WithDatabase(PostgresDB),
	}, opts...)
	opts = append(opts, testcontainers.WithWaitStrategy(
		wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60*time.Second),
	))

	ctr, err := postgres.Run(ctx, PostgresImage, opts...)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	connStr, err := ctr.ConnectionString(ctx, connArgs)
	if err != nil {
		ctr.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: ctr, ConnString: connStr}, nil
}

// DumpDatabase runs pg_dump inside the container and copies the tar-format
// archive to hostPath.
func (c *PostgresContainer) DumpDatabase(ctx context.Context, database, hostPath string) error {
	remote := containerDumpDir + "/" + filepath.Base(hostPath)

	code, output, err := c.Exec(ctx, []string{
		"pg_dump", "--username", PostgresUser, "--format", "tar", "--file", remote, database,
	}, tcexec.Multiplexed())
	if err != nil {
		return fmt.Errorf("exec pg_dump: %w", err)
	}
	if code != 0 {
		var msg strings.Builder
		if output != nil {
			_, _ = io.Copy(&msg, output)
		}
		return fmt.Errorf("pg_dump %s exited with code %d: %s", database, code, strings.TrimSpace(msg.String()))
	}

	reader, err := c.CopyFileFromContainer(ctx, remote)
	if err != nil {
		return fmt.Errorf("copy %s from container: %w", remote, err)
	}
	defer reader.Close()

	out, err := os.Create(hostPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", hostPath, err)
	}
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", hostPath, err)
	}
	return out.Close()
}

func writeSSLConfig(dir string) (string, error) {
	conf := fmt.Sprintf(`listen_addresses = '*'
ssl = on
ssl_cert_file = '%s/server.cert'
ssl_key_file = '%s/server.key'
ssl_ca_file = '%s/ca_cert.pem'
`, containerCertDir, containerCertDir, containerCertDir)

	path := filepath.Join(dir, "postgresql.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		return "", fmt.Errorf("write postgresql.conf: %w", err)
	}
	return path, nil
}

func writeMTLSInitScript(dir string) (string, error) {
	script := `#!/bin/bash
cat > "$PGDATA/pg_hba.conf" << 'PGEOF'
local   all all                trust
hostssl all all 0.0.0.0/0      cert clientcert=verify-full
hostssl all all ::/0            cert clientcert=verify-full
PGEOF
`
	path := filepath.Join(dir, "init-mtls.sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		return "", fmt.Errorf("write init script: %w", err)
	}
	return path, nil
}
