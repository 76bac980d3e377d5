package cmd

import "github.com/spf13/cobra"

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Inspect the admission tier registry",
}

func init() {
	tiersCmd.AddCommand(tiersListCmd)
	tiersCmd.AddCommand(tiersShowCmd)
	rootCmd.AddCommand(tiersCmd)
}
