package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dwhitley/credflow/internal/authplan"
	"github.com/dwhitley/credflow/internal/keyscan"
	"github.com/dwhitley/credflow/internal/logger"
	"github.com/dwhitley/credflow/pkg/sshauth"
)

// planCmd shows the authentication plan for a host without connecting.
var planCmd = &cobra.Command{
	Use:   "plan <host>",
	Short: "Show the authentication plan for a host",
	Long: `Print the ordered authentication methods that would be tried for a host.

No connection is made and no passphrases are requested; encrypted keys show
up as excluded.

Examples:
  credflow plan myserver
  credflow plan alice@192.168.1.100`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return planCommand(cmd, args[0])
	},
}

func planCommand(cmd *cobra.Command, host string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	explicit, err := cfg.Explicit(host)
	if err != nil {
		return err
	}

	log := logger.NewEnvLogger("[plan]")
	locator := keyscan.NewLocator(cfg.KeyDir, log)
	engine := sshauth.NewEngine(sshauth.Options{Locator: locator, Log: log})
	defer engine.Close()

	plan, _, err := engine.BuildPlan(context.Background(), sshauth.PlanRequest{
		Hostname: host,
		Explicit: explicit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Authentication plan for %s:\n", host)
	for _, line := range planLines(plan) {
		fmt.Fprintln(out, line)
	}

	if encrypted := locator.FindEncryptedKeys(); len(encrypted) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Encrypted keys (unlocked when connecting interactively):")
		for _, key := range encrypted {
			fmt.Fprintf(out, "  %s\n", key.Path)
		}
	}

	return nil
}

// planLines renders plan entries as numbered "kind (id)" lines.
func planLines(plan authplan.Plan) []string {
	lines := make([]string, len(plan))
	for i, entry := range plan {
		detail := string(entry.Kind)
		if entry.Kind.Method() != string(entry.Kind) {
			detail = fmt.Sprintf("%s (as %s)", entry.Kind, entry.Kind.Method())
		}
		lines[i] = fmt.Sprintf("  %d. %s %s", i+1, detail, dim(entry.ID))
	}
	return lines
}

func dim(s string) string {
	return "[" + strings.TrimSpace(s) + "]"
}

func init() {
	rootCmd.AddCommand(planCmd)
}
