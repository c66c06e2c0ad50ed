package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "licensectl",
		Short:        "Manage the license registry from the command line",
		Long:         `licensectl talks to the registry database directly. It shares the server configuration (config.yaml, environment, Vault) and bypasses the admin secret.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newCreateCommand(),
		newListCommand(),
		newResetCommand(),
		newStatusCommand("deactivate", "Switch a license off, activations and verifications fail", false),
		newStatusCommand("reactivate", "Switch a deactivated license back on", true),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
