package pgseed_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

func validDirectoryConfig() pgseed.SeedConfig {
	return pgseed.SeedConfig{
		ArchiveDir:          "/archives",
		Pattern:             "*.tar",
		MaintenanceDatabase: "postgres",
		ConnectionString:    "postgresql://postgres@localhost:5432/postgres",
		IfExists:            pgseed.IfExistsError,
	}
}

func TestSeedConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *pgseed.SeedConfig)
		wantError bool
	}{
		{
			name:   "valid directory mode",
			mutate: func(c *pgseed.SeedConfig) {},
		},
		{
			name: "valid single archive with override",
			mutate: func(c *pgseed.SeedConfig) {
				c.ArchiveDir = ""
				c.Archives = []string{"/archives/dvdrental.tar"}
				c.DatabaseName = "dvdrental"
			},
		},
		{
			name: "no source",
			mutate: func(c *pgseed.SeedConfig) {
				c.ArchiveDir = ""
			},
			wantError: true,
		},
		{
			name: "both sources",
			mutate: func(c *pgseed.SeedConfig) {
				c.Archives = []string{"a.tar"}
			},
			wantError: true,
		},
		{
			name: "override with several archives",
			mutate: func(c *pgseed.SeedConfig) {
				c.ArchiveDir = ""
				c.Archives = []string{"a.tar", "b.tar"}
				c.DatabaseName = "x"
			},
			wantError: true,
		},
		{
			name: "override in directory mode",
			mutate: func(c *pgseed.SeedConfig) {
				c.DatabaseName = "x"
			},
			wantError: true,
		},
		{
			name: "malformed pattern",
			mutate: func(c *pgseed.SeedConfig) {
				c.Pattern = "[a-"
			},
			wantError: true,
		},
		{
			name: "missing connection string",
			mutate: func(c *pgseed.SeedConfig) {
				c.ConnectionString = ""
			},
			wantError: true,
		},
		{
			name: "missing maintenance database",
			mutate: func(c *pgseed.SeedConfig) {
				c.MaintenanceDatabase = ""
			},
			wantError: true,
		},
		{
			name: "unknown policy",
			mutate: func(c *pgseed.SeedConfig) {
				c.IfExists = "replace"
			},
			wantError: true,
		},
		{
			name: "negative jobs",
			mutate: func(c *pgseed.SeedConfig) {
				c.Restore.Jobs = -1
			},
			wantError: true,
		},
		{
			name: "negative timeout",
			mutate: func(c *pgseed.SeedConfig) {
				c.Timeout = -time.Second
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDirectoryConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantError {
				t.Fatalf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
			if err != nil && !errors.Is(err, pgseed.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestSeedConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := pgseed.SeedConfig{IfExists: "bogus", Timeout: -1}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}

	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("expected joined error, got %T", err)
	}
	if n := len(joined.Unwrap()); n != 5 {
		t.Errorf("expected 5 validation errors, got %d: %v", n, err)
	}
}

func TestSeedConfig_ValidateSources_IgnoresConnection(t *testing.T) {
	cfg := pgseed.SeedConfig{ArchiveDir: "/archives", Pattern: "*.dump"}
	if err := cfg.ValidateSources(); err != nil {
		t.Errorf("ValidateSources() = %v, want nil", err)
	}
}

func TestParseExistingPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    pgseed.ExistingPolicy
		wantErr bool
	}{
		{"", pgseed.IfExistsError, false},
		{"error", pgseed.IfExistsError, false},
		{"SKIP", pgseed.IfExistsSkip, false},
		{" overwrite ", pgseed.IfExistsOverwrite, false},
		{"drop", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := pgseed.ParseExistingPolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseExistingPolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseExistingPolicy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAuthMethod_String(t *testing.T) {
	tests := []struct {
		method pgseed.AuthMethod
		want   string
	}{
		{pgseed.AuthMethodStandard, "Standard"},
		{pgseed.AuthMethodAWSIAM, "AWS IAM"},
		{pgseed.AuthMethodAzureEntraID, "Azure Entra ID"},
		{pgseed.AuthMethod(42), "Unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.method.String(); got != tt.want {
			t.Errorf("AuthMethod(%d).String() = %q, want %q", tt.method, got, tt.want)
		}
	}

	if pgseed.AuthMethod(42).IsValid() {
		t.Error("AuthMethod(42) should be invalid")
	}
}

func TestConnectionConfig_ConnectTimeoutSeconds(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Millisecond, 1},
		{500 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{10 * time.Second, 10},
	}

	for _, tt := range tests {
		cfg := pgseed.ConnectionConfig{ConnectTimeout: tt.timeout}
		if got := cfg.ConnectTimeoutSeconds(); got != tt.want {
			t.Errorf("ConnectTimeoutSeconds(%v) = %d, want %d", tt.timeout, got, tt.want)
		}
	}
}
