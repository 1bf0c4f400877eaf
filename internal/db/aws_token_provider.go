package db

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
)

// rdsTokenLifetime is how long RDS accepts a signed IAM token.
const rdsTokenLifetime = 15 * time.Minute

// AWSIAMTokenProvider signs RDS IAM authentication tokens using the default
// AWS credential chain (environment, shared config, instance or task role).
type AWSIAMTokenProvider struct {
	endpoint string // host:port
	region   string
	username string

	loadCredentials func(ctx context.Context, region string) (aws.CredentialsProvider, error)
}

// NewAWSIAMTokenProvider creates a provider for the RDS endpoint (host:port).
func NewAWSIAMTokenProvider(endpoint, region, username string) (*AWSIAMTokenProvider, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("AWS IAM auth requires endpoint (host:port)")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS IAM auth requires region (use --aws-region or $AWS_REGION)")
	}
	if username == "" {
		return nil, fmt.Errorf("AWS IAM auth requires database username")
	}

	return &AWSIAMTokenProvider{
		endpoint:        endpoint,
		region:          region,
		username:        username,
		loadCredentials: defaultAWSCredentials,
	}, nil
}

func defaultAWSCredentials(ctx context.Context, region string) (aws.CredentialsProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg.Credentials, nil
}

// GetToken signs a fresh token. Signing is local; no network call is made
// unless the credential chain itself needs one.
func (p *AWSIAMTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	creds, err := p.loadCredentials(ctx, p.region)
	if err != nil {
		return "", time.Time{}, err
	}

	signedAt := time.Now()
	token, err := auth.BuildAuthToken(ctx, p.endpoint, p.region, p.username, creds)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build RDS auth token: %w", err)
	}

	return token, signedAt.Add(rdsTokenLifetime), nil
}

func (p *AWSIAMTokenProvider) String() string {
	return fmt.Sprintf("AWSIAMTokenProvider(endpoint=%s, region=%s, user=%s)", p.endpoint, p.region, p.username)
}
