package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/dwhitley/credflow/internal/errors"
	"github.com/dwhitley/credflow/internal/keyscan"
	"github.com/dwhitley/credflow/internal/logger"
	"github.com/dwhitley/credflow/internal/ui"
	"github.com/dwhitley/credflow/pkg/sshauth"
)

var (
	connectTimeoutFlag string
	connectNoUnlock    bool
	connectInsecure    bool
)

// connectCmd authenticates against a host and reports the outcome.
var connectCmd = &cobra.Command{
	Use:   "connect <host>",
	Short: "Authenticate to a host and verify the connection",
	Long: `Build the authentication plan for a host, collect any passphrases needed,
and open an SSH connection with it.

The host can be an SSH config alias, a hostname, user@host, or host:port.
Credentials configured in .credflow.yaml are tried first, then the agent and
discovered keys.

Examples:
  credflow connect myserver
  credflow connect alice@192.168.1.100
  credflow connect build-box:2222 --no-unlock`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return connectCommand(args[0])
	},
}

func connectCommand(host string) error {
	timeout := 15 * time.Second
	if connectTimeoutFlag != "" {
		parsed, err := time.ParseDuration(connectTimeoutFlag)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("'%s' doesn't look like a valid timeout", connectTimeoutFlag),
				"Try something like 5s, 30s, or 2m")
		}
		timeout = parsed
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	explicit, err := cfg.Explicit(host)
	if err != nil {
		return err
	}

	log := logger.NewEnvLogger("[connect]")
	engine := sshauth.NewEngine(sshauth.Options{
		Locator: keyscan.NewLocator(cfg.KeyDir, log),
		Log:     log,
	})
	defer engine.Close()

	surface := ui.NewTerminalSurface(engine.Broker(), log)

	opts := sshauth.DialOptions{
		Explicit:   explicit,
		Surface:    surface,
		UnlockKeys: cfg.UnlockKeys && !connectNoUnlock,
		Timeout:    timeout,
	}
	if connectInsecure {
		opts.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // User explicitly disabled host key checking
	}

	client, err := engine.Dial(context.Background(), host, opts)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Println(ui.SuccessStyle.Render(fmt.Sprintf("✓ Authenticated to %s as %s", client.Address, client.User)))
	return nil
}

func init() {
	connectCmd.Flags().StringVar(&connectTimeoutFlag, "timeout", "", "connection timeout (e.g., 5s, 2m)")
	connectCmd.Flags().BoolVar(&connectNoUnlock, "no-unlock", false, "skip passphrase prompts for encrypted keys")
	connectCmd.Flags().BoolVar(&connectInsecure, "insecure", false, "skip host key verification")

	rootCmd.AddCommand(connectCmd)
}
