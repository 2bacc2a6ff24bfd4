// Package cli implements the credflow command-line interface.
//
// The package is organized around Cobra commands, with each command
// delegating to the sshauth engine for the actual work:
//
//	credflow connect <host>  - Authenticate and open a connection
//	credflow plan <host>     - Show the authentication plan without connecting
//	credflow keys            - List and generate SSH keys
//	credflow hosts           - List hosts from ~/.ssh/config
//	credflow version         - Print version information
package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwhitley/credflow/internal/config"
	"github.com/dwhitley/credflow/internal/errors"
	"github.com/dwhitley/credflow/internal/ui"
)

// Global flags available to all subcommands.
var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "credflow",
	Short: "SSH credential negotiation",
	Long: `credflow discovers, unlocks, and orders SSH credentials for a connection.

It scans for default keys, prompts for passphrases when keys are encrypted,
bridges keyboard-interactive challenges, and tries authentication methods in
a predictable order: your explicit credentials first, then the agent, then
discovered keys, with keyboard-interactive as the last resort.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorStyle.Render(formatError(err)))
		os.Exit(1)
	}
}

// formatError renders structured errors with their suggestion; anything else
// gets the bare failure line.
func formatError(err error) string {
	var cfErr *errors.Error
	if stderrors.As(err, &cfErr) {
		return cfErr.Error()
	}
	return fmt.Sprintf("✗ %v", err)
}

// loadConfig loads the config honoring the --config flag.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}
	return config.LoadOrDefault()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: search for .credflow.yaml)")
}
