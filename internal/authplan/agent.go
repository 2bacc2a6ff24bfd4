package authplan

import (
	"os"
	"runtime"
)

// SystemAgentSocket returns the SSH_AUTH_SOCK agent endpoint, or empty when
// no system agent is reachable. On Windows the OpenSSH agent listens on the
// named pipe \\.\pipe\openssh-ssh-agent, which a unix-socket dialer cannot
// reach; reporting it would put an undialable agent entry in the plan, so
// Windows resolves to empty until a pipe dialer exists.
func SystemAgentSocket() string {
	return systemAgentSocket(runtime.GOOS, os.Getenv)
}

func systemAgentSocket(goos string, getenv func(string) string) string {
	if goos == "windows" {
		return ""
	}
	return getenv("SSH_AUTH_SOCK")
}
