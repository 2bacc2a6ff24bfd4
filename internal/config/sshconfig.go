package config

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostSettings is what ~/.ssh/config contributes to one connection.
type HostSettings struct {
	Alias        string
	Hostname     string
	User         string
	Port         string
	IdentityFile string
}

// Description returns a user-friendly description of the host.
func (h HostSettings) Description() string {
	parts := []string{}

	if h.Hostname != "" && h.Hostname != h.Alias {
		parts = append(parts, h.Hostname)
	}
	if h.User != "" {
		parts = append(parts, "user: "+h.User)
	}
	if h.Port != "" && h.Port != "22" {
		parts = append(parts, "port: "+h.Port)
	}

	if len(parts) == 0 {
		return h.Alias
	}
	return strings.Join(parts, ", ")
}

// ResolveHost looks up host in ~/.ssh/config. Missing or unparseable config
// yields settings with only the alias filled in.
func ResolveHost(host string) HostSettings {
	return ResolveHostInFile(host, filepath.Join(homeDir(), ".ssh", "config"))
}

// ResolveHostInFile looks up host in the given SSH config file.
func ResolveHostInFile(host, configPath string) HostSettings {
	settings := HostSettings{Alias: host, Hostname: host}

	// The kevinburke/ssh_config library doesn't support Match directives,
	// so parse only the content before the first Match block.
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		return settings
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return settings
	}

	if hostname, _ := cfg.Get(host, "HostName"); hostname != "" {
		settings.Hostname = hostname
	}
	if user, _ := cfg.Get(host, "User"); user != "" {
		settings.User = user
	}
	if port, _ := cfg.Get(host, "Port"); port != "" {
		settings.Port = port
	}
	if identity, _ := cfg.Get(host, "IdentityFile"); identity != "" {
		settings.IdentityFile = expandPath(identity)
	}

	return settings
}

// ListSSHHosts parses the SSH config file and returns all concrete host
// entries, skipping wildcard patterns. A missing config is not an error.
func ListSSHHosts(configPath string) ([]HostSettings, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	var hosts []HostSettings
	seen := make(map[string]bool)

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()

			if strings.Contains(alias, "*") || strings.Contains(alias, "?") {
				continue
			}
			if seen[alias] {
				continue
			}
			seen[alias] = true

			hosts = append(hosts, ResolveHostInFile(alias, configPath))
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return hosts[i].Alias < hosts[j].Alias
	})

	return hosts, nil
}

// preprocessSSHConfig reads the SSH config and returns content up to the
// first Match directive, plus the 1-indexed line the Match was found on
// (0 if none).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}
