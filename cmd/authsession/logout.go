package main

import (
	"fmt"

	"github.com/jrsteele09/go-auth-session/session"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Long: `End the current session, revoke it with the remote auth service when
possible and remove the persisted user. Running it while signed out is a no-op.

Other running instances sharing the same data folder are signed out too.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.manager.RestoreSession(cmd.Context()); err != nil {
			a.logger.Debug().Err(err).Msg("restore before logout")
		}
		if err := a.manager.Logout(cmd.Context(), reason); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reason)
		return nil
	},
}

func init() {
	logoutCmd.Flags().String("reason", session.ReasonUser, "reason passed to logout listeners")
}
