package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dwhitley/credflow/internal/errors"
	"github.com/dwhitley/credflow/internal/hardware"
	"github.com/dwhitley/credflow/internal/keyscan"
	"github.com/dwhitley/credflow/internal/logger"
	"github.com/dwhitley/credflow/internal/ui"
)

var (
	keygenNameFlag        string
	keygenCommentFlag     string
	keygenResidentFlag    bool
	keygenApplicationFlag string
)

// keysCmd lists the default keys credflow would discover.
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List discovered SSH keys",
	Long: `List the default SSH keys credflow discovers, with their encryption status.

Encrypted keys require a passphrase before they can be offered; credflow
prompts for it during an interactive connect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return keysCommand(cmd)
	},
}

func keysCommand(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	locator := keyscan.NewLocator(cfg.KeyDir, logger.NewEnvLogger("[keys]"))
	keys := locator.FindDefaultKeys(true)

	out := cmd.OutOrStdout()
	if len(keys) == 0 {
		fmt.Fprintf(out, "No default keys found in %s\n", locator.Dir())
		return nil
	}

	for _, key := range keys {
		fmt.Fprintln(out, keyLine(key))
	}
	return nil
}

// keyLine renders one discovered key for listing.
func keyLine(key keyscan.DiscoveredKey) string {
	status := "ready"
	if key.Encrypted {
		status = "encrypted"
	}
	return fmt.Sprintf("  %-12s %-10s %s", key.Name, status, key.Path)
}

// keysGenerateCmd mints a new key on a FIDO2 security key.
var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a security-key-backed SSH key",
	Long: `Generate an ed25519-sk SSH key bound to an attached FIDO2 security key.

The private key file only works together with the physical device. You will
need to touch the key to approve generation; the operation is abandoned
after two minutes without a touch.

Examples:
  credflow keys generate
  credflow keys generate --resident --comment alice@laptop`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return keysGenerateCommand(cmd)
	},
}

func keysGenerateCommand(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewEnvLogger("[keys]")
	provider := hardware.NewFIDO2Provider(log)

	if support := provider.CheckSupport(); !support.Supported {
		return errors.New(errors.ErrHardware,
			"Security key generation not available",
			support.Reason)
	}

	out := cmd.OutOrStdout()
	devices, err := provider.ListDevices(cmd.Context())
	if err != nil {
		return err
	}
	for _, device := range devices {
		fmt.Fprintf(out, "Found security key: %s %s\n", device.Manufacturer, device.Product)
	}

	provider.TouchNotify = func(string) {
		fmt.Fprintln(out, ui.InfoStyle.Render("Touch your security key to approve..."))
	}

	result := provider.Generate(context.Background(), hardware.FIDO2GenerateOptions{
		RequestID:   uuid.NewString(),
		Dir:         cfg.KeyDir,
		Name:        keygenNameFlag,
		Comment:     keygenCommentFlag,
		Resident:    keygenResidentFlag,
		Application: keygenApplicationFlag,
	})
	if !result.Success {
		return errors.New(errors.ErrHardware,
			"Security key generation failed",
			result.Error)
	}

	fmt.Fprintf(out, "%s\n%s", ui.SuccessStyle.Render("✓ Generated key"), result.PublicKey)
	return nil
}

func init() {
	keysGenerateCmd.Flags().StringVar(&keygenNameFlag, "name", "", "key file name (default id_ed25519_sk)")
	keysGenerateCmd.Flags().StringVar(&keygenCommentFlag, "comment", "", "key comment")
	keysGenerateCmd.Flags().BoolVar(&keygenResidentFlag, "resident", false, "store the key on the device (discoverable)")
	keysGenerateCmd.Flags().StringVar(&keygenApplicationFlag, "application", "", "relying party to bind the key to")

	keysCmd.AddCommand(keysGenerateCmd)
	rootCmd.AddCommand(keysCmd)
}
