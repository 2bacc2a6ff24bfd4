package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwhitley/credflow/internal/config"
	"github.com/dwhitley/credflow/internal/errors"
)

var initForce bool

// initCmd creates a starter .credflow.yaml in the current directory.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create " + config.ConfigFileName + " configuration",
	Long: `Initialize a new credflow configuration file.

Creates a ` + config.ConfigFileName + ` in the current directory with an example
host entry to edit.

Examples:
  credflow init
  credflow init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(cmd, initForce)
	},
}

func initCommand(cmd *cobra.Command, force bool) error {
	path := config.ConfigFileName
	if _, err := os.Stat(path); err == nil && !force {
		return errors.New(errors.ErrConfig,
			path+" already exists",
			"Use --force to overwrite it")
	}

	cfg := config.DefaultConfig()
	cfg.Hosts["example"] = config.HostCredentials{
		User: "alice",
		Key:  "~/.ssh/id_ed25519",
	}

	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
	return nil
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	rootCmd.AddCommand(initCmd)
}
