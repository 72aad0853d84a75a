package main

import (
	"fmt"

	"github.com/jrsteele09/go-auth-session/session"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for new credentials",
	Long: `Restore the persisted session and refresh its credentials now.

A refresh the auth service refuses ends the session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.manager.RestoreSession(cmd.Context())
		if err != nil {
			return err
		}
		if user == nil {
			return session.ErrNotAuthenticated
		}
		if err := a.manager.RefreshSession(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session refreshed for %s\n", user.Email)
		return nil
	},
}
