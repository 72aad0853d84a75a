package session

import (
	"time"

	"github.com/jrsteele09/go-auth-session/remote"
	"github.com/jrsteele09/go-auth-session/timers"
	"github.com/rs/zerolog"
)

type Option func(*Manager)

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithVerifier replaces the token check used by RestoreSession. A nil
// verifier restores cached sessions without asking anyone.
func WithVerifier(v remote.TokenVerifier) Option {
	return func(m *Manager) {
		m.verifier = v
		m.verifierSet = true
	}
}

// WithStrictRestore logs out a restored session whose token the service
// explicitly rejects. Network failures still fall back to the cached user.
func WithStrictRestore(strict bool) Option {
	return func(m *Manager) {
		m.strictRestore = strict
	}
}

// WithScheduler drives the session timers and the lockout clock from s.
func WithScheduler(s timers.Scheduler) Option {
	return func(m *Manager) {
		m.scheduler = s
	}
}

// WithNowFunc replaces the lockout clock when no scheduler is supplied.
func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}
