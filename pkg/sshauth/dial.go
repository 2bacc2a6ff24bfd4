package sshauth

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/config"
	"github.com/dwhitley/credflow/internal/errors"
	"github.com/dwhitley/credflow/internal/keyscan"
	"github.com/dwhitley/credflow/internal/prompt"
)

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
	User    string
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// DialOptions configures one connection attempt.
type DialOptions struct {
	// Explicit credential material for this host, typically from config.
	Explicit authplan.Explicit

	// Surface answers passphrase and keyboard-interactive prompts. Nil
	// means non-interactive: no unlocking, no keyboard-interactive answers.
	Surface prompt.Surface

	// UnlockKeys enables the interactive unlock of encrypted default keys.
	UnlockKeys bool

	// HostKeyCallback overrides known_hosts verification. Nil uses
	// ~/.ssh/known_hosts.
	HostKeyCallback ssh.HostKeyCallback

	// Timeout bounds the TCP dial and the SSH handshake. Zero means 15s.
	Timeout time.Duration
}

// connTarget holds resolved connection parameters for one dial.
type connTarget struct {
	hostname string
	port     string
	user     string
}

func (t *connTarget) address() string {
	return net.JoinHostPort(t.hostname, t.port)
}

// resolveTarget parses user@host:port and fills the gaps from ~/.ssh/config.
func resolveTarget(host string) *connTarget {
	target := &connTarget{port: "22", user: currentUser()}

	explicitUser := false
	if atIdx := strings.Index(host, "@"); atIdx != -1 {
		target.user = host[:atIdx]
		host = host[atIdx+1:]
		explicitUser = true
	}

	explicitPort := false
	if colonIdx := strings.LastIndex(host, ":"); colonIdx != -1 {
		potentialPort := host[colonIdx+1:]
		isPort := len(potentialPort) > 0
		for _, c := range potentialPort {
			if c < '0' || c > '9' {
				isPort = false
				break
			}
		}
		if isPort {
			target.port = potentialPort
			host = host[:colonIdx]
			explicitPort = true
		}
	}

	// Command-line values beat ssh config for both user and port.
	settings := config.ResolveHost(host)
	target.hostname = settings.Hostname
	if settings.Port != "" && !explicitPort {
		target.port = settings.Port
	}
	if settings.User != "" && !explicitUser {
		target.user = settings.User
	}

	return target
}

// Dial establishes an authenticated SSH connection to the specified host.
// The host can be:
//   - An SSH config alias (e.g., "myserver")
//   - A hostname (e.g., "192.168.1.100")
//   - A user@hostname (e.g., "user@192.168.1.100")
//   - A hostname:port (e.g., "192.168.1.100:2222")
//
// The engine builds the authentication plan for the host and offers its
// entries in order until one succeeds or the plan is exhausted.
func (e *Engine) Dial(ctx context.Context, host string, opts DialOptions) (*Client, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	target := resolveTarget(host)

	plan, cancelled, err := e.BuildPlan(ctx, PlanRequest{
		Hostname:   target.hostname,
		Explicit:   opts.Explicit,
		Surface:    opts.Surface,
		UnlockKeys: opts.UnlockKeys,
	})
	if err != nil {
		return nil, err
	}
	if cancelled {
		return nil, errors.New(errors.ErrAuth,
			fmt.Sprintf("Connection to '%s' cancelled", host),
			"Unlock was aborted; run again to retry")
	}

	savedPassword := ""
	if opts.Explicit.HasPassword {
		savedPassword = opts.Explicit.Password
	}
	methods := e.AuthMethods(ctx, plan, target.user, target.hostname, opts.Surface, savedPassword)
	if len(methods) == 0 {
		return nil, errors.New(errors.ErrAuth,
			"No SSH auth methods available for '"+host+"'",
			noMethodsSuggestion(e))
	}

	hostKeyCallback := opts.HostKeyCallback
	if hostKeyCallback == nil {
		hostKeyCallback, err = KnownHostsCallback("")
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrAuth,
				"Failed to load known_hosts",
				"Check permissions on ~/.ssh/known_hosts")
		}
	}

	clientConfig := &ssh.ClientConfig{
		User:            target.user,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	address := target.address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAuth,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, clientConfig)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrAuth,
				hostKeyErr.Error(),
				hostKeyErr.Suggestion())
		}

		return nil, errors.WrapWithCode(err, errors.ErrAuth,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, e.locator.FindEncryptedKeys()))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
		User:    target.user,
	}, nil
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error, encryptedKeys []keyscan.DiscoveredKey) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		if len(encryptedKeys) > 0 {
			var sb strings.Builder
			sb.WriteString("Your key(s) are encrypted. Unlock them when prompted, or add them to the agent:\n")
			for _, key := range encryptedKeys {
				if runtime.GOOS == "darwin" {
					sb.WriteString(fmt.Sprintf("  ssh-add --apple-use-keychain %s\n", key.Path))
				} else {
					sb.WriteString(fmt.Sprintf("  ssh-add %s\n", key.Path))
				}
			}
			return sb.String()
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}

func noMethodsSuggestion(e *Engine) string {
	if encrypted := e.locator.FindEncryptedKeys(); len(encrypted) > 0 {
		var paths []string
		for _, key := range encrypted {
			paths = append(paths, key.Path)
		}
		return "Found encrypted key(s): " + strings.Join(paths, ", ") +
			"\nConnect interactively to unlock them, or add them to the agent: ssh-add <key>"
	}
	return "Configure a password or key for this host, or load a key: ssh-add -l"
}
