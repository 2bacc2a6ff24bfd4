package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSSHConfig = `
Host gpu-box
    HostName 192.168.1.50
    User alice
    Port 2222
    IdentityFile ~/.ssh/id_gpu

Host web-*
    User deploy

Host bastion
    HostName bastion.example.com
`

func writeSSHConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestResolveHostInFile(t *testing.T) {
	path := writeSSHConfig(t, sampleSSHConfig)

	settings := ResolveHostInFile("gpu-box", path)
	assert.Equal(t, "gpu-box", settings.Alias)
	assert.Equal(t, "192.168.1.50", settings.Hostname)
	assert.Equal(t, "alice", settings.User)
	assert.Equal(t, "2222", settings.Port)
	assert.Equal(t, filepath.Join(homeDir(), ".ssh", "id_gpu"), settings.IdentityFile)
}

func TestResolveHostWildcardMatch(t *testing.T) {
	path := writeSSHConfig(t, sampleSSHConfig)

	settings := ResolveHostInFile("web-7", path)
	assert.Equal(t, "web-7", settings.Hostname, "no HostName keeps the alias")
	assert.Equal(t, "deploy", settings.User)
}

func TestResolveHostUnknown(t *testing.T) {
	path := writeSSHConfig(t, sampleSSHConfig)

	settings := ResolveHostInFile("nowhere", path)
	assert.Equal(t, "nowhere", settings.Alias)
	assert.Equal(t, "nowhere", settings.Hostname)
	assert.Empty(t, settings.User)
}

func TestResolveHostMissingConfig(t *testing.T) {
	settings := ResolveHostInFile("somewhere", filepath.Join(t.TempDir(), "absent"))
	assert.Equal(t, "somewhere", settings.Hostname)
}

func TestResolveHostStopsAtMatch(t *testing.T) {
	path := writeSSHConfig(t, `
Host before
    HostName before.example.com

Match host *.example.com
    User matched

Host after
    HostName after.example.com
`)

	before := ResolveHostInFile("before", path)
	assert.Equal(t, "before.example.com", before.Hostname)

	// Entries after the Match block are invisible to the parser.
	after := ResolveHostInFile("after", path)
	assert.Equal(t, "after", after.Hostname)
}

func TestListSSHHosts(t *testing.T) {
	path := writeSSHConfig(t, sampleSSHConfig)

	hosts, err := ListSSHHosts(path)
	require.NoError(t, err)
	require.Len(t, hosts, 2, "wildcard patterns are excluded")
	assert.Equal(t, "bastion", hosts[0].Alias)
	assert.Equal(t, "gpu-box", hosts[1].Alias)
	assert.Equal(t, "bastion.example.com", hosts[0].Hostname)
}

func TestListSSHHostsMissingConfig(t *testing.T) {
	hosts, err := ListSSHHosts(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, hosts)
}

func TestHostSettingsDescription(t *testing.T) {
	tests := []struct {
		name     string
		settings HostSettings
		want     string
	}{
		{"bare alias", HostSettings{Alias: "box"}, "box"},
		{"hostname and user", HostSettings{Alias: "box", Hostname: "10.0.0.1", User: "alice"}, "10.0.0.1, user: alice"},
		{"default port hidden", HostSettings{Alias: "box", User: "a", Port: "22"}, "user: a"},
		{"custom port shown", HostSettings{Alias: "box", Port: "2222"}, "port: 2222"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.Description())
		})
	}
}
