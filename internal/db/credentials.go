package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// tokenRefreshMargin is how long before expiry a cached token is replaced.
// A restore can run for minutes, but the server only checks the token at login.
const tokenRefreshMargin = time.Minute

// StaticCredentials returns a fixed password.
type StaticCredentials struct {
	password string
}

// NewStaticCredentials wraps a password that never changes.
func NewStaticCredentials(password string) StaticCredentials {
	return StaticCredentials{password: password}
}

func (s StaticCredentials) Password(context.Context) (string, error) {
	return s.password, nil
}

// TokenCredentials presents cloud tokens as passwords, reusing a token
// until it is close to expiry. Safe for concurrent use.
type TokenCredentials struct {
	provider TokenProvider
	logger   pgseed.Logger
	now      func() time.Time

	mu        sync.Mutex
	token     string
	expiresOn time.Time
}

// NewTokenCredentials creates TokenCredentials backed by provider.
func NewTokenCredentials(provider TokenProvider, logger pgseed.Logger) *TokenCredentials {
	return &TokenCredentials{
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *TokenCredentials) Password(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Add(tokenRefreshMargin).Before(c.expiresOn) {
		return c.token, nil
	}

	token, expiresOn, err := c.provider.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to acquire token from %s: %w", c.provider, err)
	}
	c.token, c.expiresOn = token, expiresOn

	if c.logger != nil {
		c.logger.Verbose("Acquired token from %s, valid for %v", c.provider, expiresOn.Sub(c.now()).Round(time.Second))
	}
	return token, nil
}

// NewCredentials chooses the password source for cfg.AuthMethod.
func NewCredentials(cfg *pgseed.ConnectionConfig, logger pgseed.Logger) (pgseed.Credentials, error) {
	switch cfg.AuthMethod {
	case pgseed.AuthMethodStandard:
		return NewStaticCredentials(cfg.Password), nil

	case pgseed.AuthMethodAWSIAM:
		provider, err := NewAWSIAMTokenProvider(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), cfg.AWSRegion, cfg.Username)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, pgseed.ErrInvalidConfig)
		}
		return NewTokenCredentials(provider, logger), nil

	case pgseed.AuthMethodAzureEntraID:
		var provider TokenProvider
		var err error
		if cfg.AzureTenantID != "" && cfg.AzureClientID != "" && cfg.AzureClientSecret != "" {
			provider, err = NewAzureServicePrincipalProvider(cfg.AzureTenantID, cfg.AzureClientID, cfg.AzureClientSecret)
		} else {
			provider, err = NewAzureDefaultCredentialProvider(cfg.AzureTenantID)
		}
		if err != nil {
			return nil, err
		}
		return NewTokenCredentials(provider, logger), nil

	default:
		return nil, fmt.Errorf("auth method %v: %w", cfg.AuthMethod, pgseed.ErrUnsupportedAuthMethod)
	}
}
