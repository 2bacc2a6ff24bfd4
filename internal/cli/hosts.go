package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dwhitley/credflow/internal/config"
)

// hostsCmd lists concrete host entries from ~/.ssh/config.
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List hosts from ~/.ssh/config",
	Long: `List the concrete host aliases defined in ~/.ssh/config, with the
settings credflow resolves for each.

Wildcard patterns and entries behind Match blocks are not shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hostsCommand(cmd)
	},
}

func hostsCommand(cmd *cobra.Command) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	hosts, err := config.ListSSHHosts(filepath.Join(home, ".ssh", "config"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(hosts) == 0 {
		fmt.Fprintln(out, "No hosts found in ~/.ssh/config")
		return nil
	}

	for _, host := range hosts {
		fmt.Fprintf(out, "  %-20s %s\n", host.Alias, host.Description())
	}
	return nil
}

func init() {
	rootCmd.AddCommand(hostsCmd)
}
