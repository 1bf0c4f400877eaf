// Package config loads the optional pgseed.yaml project file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

type ConnectionConfig struct {
	Host                string `yaml:"host"`
	Port                int    `yaml:"port"`
	Username            string `yaml:"username"`
	Database            string `yaml:"database"`
	MaintenanceDatabase string `yaml:"maintenance_database,omitempty"`
	SSLMode             string `yaml:"sslmode"`
	SSLCert             string `yaml:"sslcert,omitempty"`
	SSLKey              string `yaml:"sslkey,omitempty"`
	SSLRootCert         string `yaml:"sslrootcert,omitempty"`
	AuthMethod          string `yaml:"auth_method,omitempty"`
	AWSRegion           string `yaml:"aws_region,omitempty"`
	AzureTenantID       string `yaml:"azure_tenant_id,omitempty"`
	AzureClientID       string `yaml:"azure_client_id,omitempty"`
}

type RestoreConfig struct {
	ArchiveDir   string `yaml:"archive_dir,omitempty"`
	Pattern      string `yaml:"pattern,omitempty"`
	Database     string `yaml:"database,omitempty"`
	GrantTo      string `yaml:"grant_to,omitempty"`
	IfExists     string `yaml:"if_exists,omitempty"`
	Jobs         int    `yaml:"jobs,omitempty"`
	NoOwner      bool   `yaml:"no_owner,omitempty"`
	NoPrivileges bool   `yaml:"no_privileges,omitempty"`
	PgRestore    string `yaml:"pg_restore,omitempty"`
}

type ProjectConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
	Restore    RestoreConfig    `yaml:"restore"`
	Timeout    string           `yaml:"timeout"`
}

const ConfigFileName = "pgseed.yaml"

// Load reads pgseed.yaml from dir.
func Load(dir string) (*ProjectConfig, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads a config file from an explicit path.
// Unknown keys are rejected so that a misspelt setting does not go unnoticed.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg ProjectConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// TimeoutDuration parses Timeout. Empty means zero (no limit).
func (c *ProjectConfig) TimeoutDuration() (time.Duration, error) {
	if c == nil || c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q in %s: %w", c.Timeout, ConfigFileName, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout in %s cannot be negative", ConfigFileName)
	}
	return d, nil
}
