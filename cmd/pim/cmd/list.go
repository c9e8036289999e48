package cmd

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List eligible roles and what a run would do with them",
	Long: `Discover the roles the signed-in user is eligible to activate and
show the decision each would get, without activating anything.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeRun(cmd.Context(), true)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
