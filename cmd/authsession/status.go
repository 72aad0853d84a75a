package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/go-auth-session/lockout"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the signed in user and lockout state",
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
		printStatus(cmd.OutOrStdout(), user, a.manager.Lockout())
		return nil
	},
}

func printStatus(w io.Writer, user *users.User, tracker *lockout.Tracker) {
	if user == nil {
		fmt.Fprintln(w, "Not signed in")
	} else {
		fmt.Fprintf(w, "Signed in as %s <%s>\n", user.Name, user.Email)
		fmt.Fprintf(w, "  id:          %s\n", user.ID)
		fmt.Fprintf(w, "  role:        %s\n", user.Role)
		if len(user.Roles) > 0 {
			fmt.Fprintf(w, "  roles:       %s\n", strings.Join(user.Roles, ", "))
		}
		if len(user.Permissions) > 0 {
			fmt.Fprintf(w, "  permissions: %s\n", strings.Join(user.Permissions, ", "))
		}
	}

	if tracker.IsLocked() {
		fmt.Fprintf(w, "Login locked for %d more minute(s)\n", tracker.RemainingMinutes())
		return
	}
	fmt.Fprintf(w, "Login attempts left: %d/%d\n", tracker.RemainingAttempts(), tracker.MaxAttempts())
}
