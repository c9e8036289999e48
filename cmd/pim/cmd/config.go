package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default configuration file",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

const defaultConfigTemplate = `# pim configuration
azure:
  # Tenant to authenticate against. Leave empty to use the credential default.
  tenantId: ""

directory:
  enabled: true
  durationHours: 8
  # Role names used when activation.mode is "named".
  roles: []

resource:
  enabled: true
  durationHours: 8
  roles: []
  scopes: []
    # - scope: /subscriptions/00000000-0000-0000-0000-000000000000
    #   scopeType: subscription
    #   maxDurationHours: 8
    # - scope: /providers/Microsoft.Management/managementGroups/my-mg
    #   scopeType: managementGroup

activation:
  # all: activate every eligible role. named: only the roles listed above.
  mode: all
  justification: Scheduled activation of eligible roles

state:
  # Defaults to ~/.pim-activator/state.json
  path: ""

log:
  level: info
  format: console
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	path := cfgFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".pim-activator.yaml")
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	fmt.Println("Wrote config file:", path)
	return nil
}
