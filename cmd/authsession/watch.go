package main

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/jrsteele09/go-auth-session/session"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the session alive in the foreground",
	Long: `Restore the persisted session and keep it running: tokens are refreshed
before they expire and the session ends after a period of inactivity.

Every line read from standard input counts as user activity. The command
returns when the session ends, including a logout from another instance,
or when interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		displayAppname(a.cfg.GetAppName())
		user, err := a.manager.RestoreSession(cmd.Context())
		if err != nil {
			return err
		}
		if user == nil {
			return session.ErrNotAuthenticated
		}

		out := cmd.OutOrStdout()
		done := make(chan struct{})
		var once sync.Once
		a.manager.OnLogout(func(reason string) {
			fmt.Fprintln(out, reason)
			once.Do(func() { close(done) })
		})
		fmt.Fprintf(out, "Watching session for %s\n", user.Email)

		go forwardActivity(cmd.InOrStdin(), a.manager, done)
		waitForStopSignal(done)
		return nil
	},
}

// forwardActivity records one activity per input line until in is exhausted
// or done is closed.
func forwardActivity(in io.Reader, m *session.Manager, done <-chan struct{}) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case <-done:
			return
		default:
		}
		m.RecordActivity()
	}
}
