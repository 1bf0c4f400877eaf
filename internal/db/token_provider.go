package db

import (
	"context"
	"time"
)

// TokenProvider acquires short-lived cloud tokens that stand in for a password.
type TokenProvider interface {
	// GetToken returns a token and the time it stops being accepted.
	GetToken(ctx context.Context) (token string, expiresOn time.Time, err error)

	// String describes the provider for logs. It must not include secrets.
	String() string
}

// AzurePostgreSQLScope is the OAuth scope for Azure Database for PostgreSQL.
const AzurePostgreSQLScope = "https://ossrdbms-aad.database.windows.net/.default"
