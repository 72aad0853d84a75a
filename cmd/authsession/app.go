package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/logging"
	"github.com/jrsteele09/go-auth-session/remote"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/filestore"
	"github.com/jrsteele09/go-auth-session/storage/sqlitestore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	credentialsFile = "credentials"
	durableFile     = "session"
)

// app holds everything a command needs to talk to the session.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	manager *session.Manager
	closers []io.Closer
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logger, logCloser := logging.New(logging.Options{
		Level: cfg.GetLogLevel(),
		File:  cfg.GetLogFile(),
		Env:   cfg.GetEnv(),
	})
	a := &app{cfg: cfg, logger: logger, closers: []io.Closer{logCloser}}

	stores, err := a.openStores()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	svc := remote.NewHTTPClient(cfg, remote.WithLogger(logger))
	options := []session.Option{session.WithLogger(logger)}
	if issuer := cfg.GetOIDCIssuer(); issuer != "" {
		verifier, err := remote.NewOIDCVerifier(ctx, issuer, cfg.GetOIDCClientID())
		if err != nil {
			logger.Warn().Err(err).Str("issuer", issuer).Msg("OIDC discovery failed, verifying tokens with the auth service")
		} else {
			options = append(options, session.WithVerifier(verifier))
		}
	}

	a.manager = session.New(cfg, svc, stores, options...)
	a.closers = append(a.closers, a.manager)
	return a, nil
}

// openStores opens the credential and durable stores under the data folder.
// Credentials live in their own document so that separate invocations share
// the signed in session.
func (a *app) openStores() (session.Stores, error) {
	folder := a.cfg.GetDataFolder()
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return session.Stores{}, fmt.Errorf("[app openStores] create data folder: %w", err)
	}

	open := func(name string) (storage.Store, error) {
		switch a.cfg.GetStoreDriver() {
		case config.StoreDriverSQLite:
			return sqlitestore.New(filepath.Join(folder, name+".db"))
		default:
			return filestore.New(filepath.Join(folder, name+".json"), filestore.WithLogger(a.logger))
		}
	}

	volatile, err := open(credentialsFile)
	if err != nil {
		return session.Stores{}, err
	}
	a.closers = append(a.closers, volatile)
	durable, err := open(durableFile)
	if err != nil {
		return session.Stores{}, err
	}
	a.closers = append(a.closers, durable)
	return session.Stores{Volatile: volatile, Durable: durable}, nil
}

// Close releases resources in reverse order of acquisition, so the manager
// stops before the stores and logger it uses.
func (a *app) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
