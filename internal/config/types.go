// Package config loads credflow's credential configuration and resolves
// per-host connection settings from it and from ~/.ssh/config.
package config

import (
	"os"

	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/errors"
)

// HostCredentials is the explicit credential material configured for one host.
// Everything is optional; unset fields fall back to discovery.
type HostCredentials struct {
	User        string `mapstructure:"user" yaml:"user,omitempty"`
	Password    string `mapstructure:"password" yaml:"password,omitempty"`
	Key         string `mapstructure:"key" yaml:"key,omitempty"`               // path to a private key file
	Passphrase  string `mapstructure:"passphrase" yaml:"passphrase,omitempty"` // for the configured key
	Agent       bool   `mapstructure:"agent" yaml:"agent,omitempty"`           // force agent auth
	AgentSocket string `mapstructure:"agent_socket" yaml:"agent_socket,omitempty"`
}

// Config is the parsed credflow configuration.
type Config struct {
	// Hosts maps a host alias or hostname to its configured credentials.
	Hosts map[string]HostCredentials `mapstructure:"hosts" yaml:"hosts"`

	// KeyDir overrides the default key scan directory (~/.ssh).
	KeyDir string `mapstructure:"key_dir" yaml:"key_dir,omitempty"`

	// UnlockKeys controls whether encrypted default keys are offered for
	// interactive unlocking before connecting.
	UnlockKeys bool `mapstructure:"unlock_keys" yaml:"unlock_keys"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Hosts:      make(map[string]HostCredentials),
		UnlockKeys: true,
	}
}

// Credentials returns the configured credentials for host, if any.
func (c *Config) Credentials(host string) (HostCredentials, bool) {
	creds, ok := c.Hosts[host]
	return creds, ok
}

// Explicit converts a host's configured credentials into planner input,
// reading the key file if one is configured.
func (c *Config) Explicit(host string) (authplan.Explicit, error) {
	var explicit authplan.Explicit

	creds, ok := c.Hosts[host]
	if !ok {
		return explicit, nil
	}

	if creds.Password != "" {
		explicit.Password = creds.Password
		explicit.HasPassword = true
	}
	if creds.Key != "" {
		data, err := os.ReadFile(expandPath(creds.Key))
		if err != nil {
			return explicit, errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot read configured key for "+host,
				"Check the 'key' path for this host in your config")
		}
		explicit.Key = data
		explicit.Passphrase = creds.Passphrase
	}
	if creds.Agent || creds.AgentSocket != "" {
		explicit.HasAgent = true
		explicit.AgentSocket = creds.AgentSocket
	}

	return explicit, nil
}
