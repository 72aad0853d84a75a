package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "authsession",
	Short: "Manage a local authentication session",
	Long: `Authsession keeps a user signed in against the remote auth service.

It logs in with email and password, persists the session between runs,
refreshes tokens before they expire and locks further attempts after
too many failures.

Configuration is read from environment variables and, optionally, from a
TOML file given with --config.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a TOML configuration file")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mockServerCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
