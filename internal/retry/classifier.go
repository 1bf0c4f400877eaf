package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE classes and codes that clear up on their own.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
var (
	transientClasses = []string{
		"08", // connection exception
		"53", // insufficient resources
		"57", // operator intervention, includes 57P03 cannot_connect_now
	}
	transientCodes = map[string]bool{
		"40001": true, // serialization_failure
		"40P01": true, // deadlock_detected
		"55P03": true, // lock_not_available
	}
)

var transientMessages = []string{
	"connection refused",
	"connection reset",
	"the database system is starting up",
	"the database system is shutting down",
	"the database system is in recovery mode",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"server closed the connection unexpectedly",
	"unexpected eof",
}

// PostgreSQLErrorClassifier reports which connection errors are worth retrying.
type PostgreSQLErrorClassifier struct{}

// NewPostgreSQLErrorClassifier creates a PostgreSQLErrorClassifier.
func NewPostgreSQLErrorClassifier() *PostgreSQLErrorClassifier {
	return &PostgreSQLErrorClassifier{}
}

// IsTransient returns true when retrying err may succeed.
// Context cancellation is never transient.
func (c *PostgreSQLErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return isTransientCode(pgErr.Code)
	}

	if isTransientNetError(err) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func isTransientCode(code string) bool {
	if transientCodes[code] {
		return true
	}
	for _, class := range transientClasses {
		if strings.HasPrefix(code, class) {
			return true
		}
	}
	return false
}

func isTransientNetError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout || dnsErr.IsNotFound
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		for _, errno := range []syscall.Errno{
			syscall.ECONNREFUSED,
			syscall.ECONNRESET,
			syscall.ENETUNREACH,
			syscall.EHOSTUNREACH,
		} {
			if errors.Is(opErr.Err, errno) {
				return true
			}
		}
	}
	return false
}
