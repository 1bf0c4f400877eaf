package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgseed/internal/retry"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns is enough for the management pool: one connection for
	// CREATE/DROP DATABASE plus one for catalog queries.
	DefaultMaxConns = 2

	// DefaultMaxConnIdleTime keeps the management connection alive while
	// a long pg_restore runs.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

// Connector opens pgx pools with retry on transient failures.
// The password is fetched from Credentials on every attempt so cloud tokens stay fresh.
type Connector struct {
	config      *pgseed.ConnectionConfig
	credentials pgseed.Credentials
	executor    *retry.Executor
	logger      pgseed.Logger
	maxConns    int32
}

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithLogger routes retry notices and server NOTICE messages to logger.
func WithLogger(logger pgseed.Logger) ConnectorOption {
	return func(c *Connector) { c.logger = logger }
}

// WithRetryExecutor replaces the default retry policy.
func WithRetryExecutor(executor *retry.Executor) ConnectorOption {
	return func(c *Connector) { c.executor = executor }
}

// WithMaxConns sets the pool size.
func WithMaxConns(n int32) ConnectorOption {
	return func(c *Connector) { c.maxConns = n }
}

// NewConnector creates a Connector. Retry uses the pgseed defaults:
// DefaultRetryMaxAttempts retries, backoff from DefaultRetryInitialDelay up to DefaultRetryMaxDelay.
func NewConnector(cfg *pgseed.ConnectionConfig, credentials pgseed.Credentials, opts ...ConnectorOption) *Connector {
	c := &Connector{
		config:      cfg,
		credentials: credentials,
		executor:    NewDefaultRetryExecutor(),
		maxConns:    DefaultMaxConns,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger != nil {
		logger := c.logger
		c.executor = c.executor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Info("Database not reachable yet (attempt %d): %v; retrying in %v", attempt+1, firstLine(err), delay.Round(time.Millisecond))
		})
	}
	return c
}

// NewDefaultRetryExecutor returns the connection retry policy.
func NewDefaultRetryExecutor() *retry.Executor {
	return retry.NewExecutor(
		retry.NewPostgreSQLErrorClassifier(),
		retry.NewExponentialBackoff(pgseed.DefaultRetryMaxAttempts,
			retry.WithInitialDelay(pgseed.DefaultRetryInitialDelay),
			retry.WithMaxDelay(pgseed.DefaultRetryMaxDelay),
		),
	)
}

// ForDatabase returns a Connector for another database on the same server.
func (c *Connector) ForDatabase(database string) pgseed.Connector {
	clone := *c
	clone.config = WithDatabase(c.config, database)
	return &clone
}

// Config returns the connection parameters without the password.
func (c *Connector) Config() *pgseed.ConnectionConfig {
	return c.config
}

// Connect establishes a pool and verifies it with a ping.
func (c *Connector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		password, err := c.credentials.Password(ctx)
		if err != nil {
			return err
		}

		withPassword := *c.config
		withPassword.Password = password

		poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(&withPassword))
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %v: %w", err, pgseed.ErrInvalidConfig)
		}
		c.configurePool(poolConfig)

		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
		}

		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}

func (c *Connector) configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = c.maxConns
	poolConfig.MinConns = 0
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	if c.logger != nil {
		logger := c.logger
		poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
			logger.Verbose("%s: %s", notice.Severity, notice.Message)
		}
	}
}

func firstLine(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		return msg[:i]
	}
	return msg
}

// wrapConnectionError adds actionable guidance to raw pgx connection errors.
// The result wraps both pgseed.ErrConnectionFailed and err.
func wrapConnectionError(err error, host string, port int, database string) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	var pgErr *pgconn.PgError
	isPgErr := errors.As(err, &pgErr)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running yet (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w: %w`, addr, host, port, pgseed.ErrConnectionFailed, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - The database container is not on the same network
  - DNS is not configured or reachable

Original error: %w: %w`, host, pgseed.ErrConnectionFailed, err)

	case (isPgErr && pgErr.Code == "28P01") || strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or $POSTGRES_PASSWORD)
  - Wrong username (check -U, $PGUSER or $POSTGRES_USER)
  - Expired cloud token

Original error: %w: %w`, database, pgseed.ErrConnectionFailed, err)

	case (isPgErr && pgErr.Code == "3D000") || strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

The maintenance database must already exist. Choose another with --maintenance-db.

Original error: %w: %w`, database, pgseed.ErrConnectionFailed, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w: %w`, addr, pgseed.ErrConnectionFailed, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)
  - Client certificates missing (check sslcert/sslkey in pgseed.yaml)

Original error: %w: %w`, pgseed.ErrConnectionFailed, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Stale sessions from a previous run

Original error: %w: %w`, database, pgseed.ErrConnectionFailed, err)

	default:
		return fmt.Errorf("failed to connect to database %q at %s: %w: %w", database, addr, pgseed.ErrConnectionFailed, err)
	}
}

// Verify Connector implements pgseed.Connector at compile time
var _ pgseed.Connector = (*Connector)(nil)
