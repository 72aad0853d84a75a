package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/logging"
	"github.com/jrsteele09/go-auth-session/remote/mockserver"
	fakeuserrepo "github.com/jrsteele09/go-auth-session/users/repofake"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Serve the auth endpoints locally for development",
	Long: `Run an in-memory implementation of the remote auth service.

Accounts are given as email:password:role and are lost when the server stops.

Examples:
  authsession mock-server --addr :8080 --user awa.diallo@example.com:secret:agent`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		logger, closer := logging.New(logging.Options{Level: cfg.GetLogLevel(), File: cfg.GetLogFile(), Env: cfg.GetEnv()})
		defer closer.Close()

		addr, _ := cmd.Flags().GetString("addr")
		specs, _ := cmd.Flags().GetStringArray("user")
		ttl, _ := cmd.Flags().GetDuration("access-ttl")

		repo := fakeuserrepo.NewFakeAccountRepo()
		for _, spec := range specs {
			email, password, role, err := parseUserSpec(spec)
			if err != nil {
				return err
			}
			if _, err := repo.AddAccount(email, password, displayName(email), role); err != nil {
				return err
			}
		}

		displayAppname(cfg.GetAppName())
		server := &http.Server{
			Addr:    addr,
			Handler: mockserver.New(repo, mockserver.WithLogger(logger), mockserver.WithAccessTTL(ttl)),
		}
		errs := make(chan error, 1)
		done := make(chan struct{})
		go func() {
			errs <- listenAndServe(server, logger)
			close(done)
		}()

		waitForStopSignal(done)
		shutdownErr := shutdown(server)
		<-done
		if err := <-errs; err != nil {
			return err
		}
		return shutdownErr
	},
}

func init() {
	mockServerCmd.Flags().String("addr", ":8080", "listen address")
	mockServerCmd.Flags().StringArray("user", nil, "account as email:password:role, repeatable")
	mockServerCmd.Flags().Duration("access-ttl", mockserver.DefaultAccessTTL, "lifetime of issued access tokens")
}

func parseUserSpec(spec string) (email, password, role string, err error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("invalid --user %q, expected email:password:role", spec)
	}
	return parts[0], parts[1], parts[2], nil
}

// displayName derives a readable name from the local part of an email address.
func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	words := strings.FieldsFunc(local, func(r rune) bool { return r == '.' || r == '_' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("mock auth service listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
