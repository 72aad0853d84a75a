// Package session manages the authenticated session of a client: login with
// lockout, logout, restoration after restart, idle timeout and silent token
// refresh.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/internal/config"
	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/lockout"
	"github.com/jrsteele09/go-auth-session/remote"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/timers"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// UserKey is the durable key of the persisted user record
const UserKey = "authUser"

// Logout reasons reported to OnLogout listeners
const (
	ReasonUser               = "Déconnexion"
	ReasonExpired            = "Session expirée"
	ReasonIdle               = "Session expirée (inactivité)"
	ReasonSignedOutElsewhere = "Déconnecté depuis une autre instance"
)

// State is the coarse authentication state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Stores holds the two key/value stores the manager persists into.
type Stores struct {
	Volatile storage.Store // credentials, lost when the session scope ends
	Durable  storage.Store // user record and lockout state, survives restarts
}

// Manager is the single owner of session state. Construct it once and pass
// it to whatever needs to query or change the session.
type Manager struct {
	remote        remote.Service
	verifier      remote.TokenVerifier
	verifierSet   bool
	strictRestore bool
	credentials   *credentials.Store
	durable       storage.Store
	lockout       *lockout.Tracker
	timers        *timers.Coordinator
	scheduler     timers.Scheduler
	now           func() time.Time
	logger        zerolog.Logger

	loginInFlight atomic.Bool
	watchCancel   context.CancelFunc

	mu        sync.Mutex
	user      *users.User
	state     State
	sessionID string
	listeners []func(reason string)
}

func New(cfg config.SessionConfig, svc remote.Service, stores Stores, options ...Option) *Manager {
	m := &Manager{
		remote:        svc,
		strictRestore: cfg.GetStrictRestore(),
		credentials:   credentials.NewStore(stores.Volatile),
		durable:       stores.Durable,
		now:           time.Now,
		logger:        log.Logger,
	}
	for _, opt := range options {
		opt(m)
	}
	if !m.verifierSet {
		m.verifier = svc
	}
	if m.scheduler != nil {
		m.now = m.scheduler.Now
	}

	m.lockout = lockout.New(stores.Durable, cfg,
		lockout.WithNowFunc(m.now),
		lockout.WithLogger(m.logger),
	)
	timerOpts := []timers.Option{
		timers.WithActivityCoalescing(cfg.GetActivityCoalesceWindow()),
		timers.WithLogger(m.logger),
	}
	if m.scheduler != nil {
		timerOpts = append(timerOpts, timers.WithScheduler(m.scheduler))
	}
	m.timers = timers.New(cfg, timerOpts...)

	m.startWatch()
	return m
}

// Login authenticates against the remote service. Only one login may be in
// flight; a concurrent call fails with ErrLoginInProgress.
func (m *Manager) Login(ctx context.Context, email, password string) (*users.User, error) {
	if !m.loginInFlight.CompareAndSwap(false, true) {
		return nil, errors.Wrap(ErrLoginInProgress, "[Manager.Login]")
	}
	defer m.loginInFlight.Store(false)

	if m.lockout.IsLocked() {
		m.logger.Info().Str("email", email).Msg("login refused while locked")
		return nil, &AuthError{Kind: KindLocked, RemainingMinutes: m.lockout.RemainingMinutes()}
	}

	m.setAuthenticating(true)
	result, err := m.remote.Login(ctx, email, password)
	if err != nil {
		m.setAuthenticating(false)
		return nil, m.loginFailure(email, err)
	}

	creds := credentials.Credentials{AccessToken: result.Tokens.AccessToken, RefreshToken: result.Tokens.RefreshToken}
	if err := m.credentials.Save(creds); err != nil {
		m.setAuthenticating(false)
		return nil, errors.Wrap(err, "[Manager.Login] saving credentials")
	}
	m.lockout.RecordSuccess()

	user := result.User
	if user.Email == "" {
		user.Email = email
	}
	enrichFromClaims(&user, creds)
	if err := storage.SetJSON(m.durable, UserKey, user.Record()); err != nil {
		m.logger.Err(err).Msg("[Manager.Login] persisting user record")
	}

	m.begin(&user)
	m.logger.Info().Str("user_id", user.ID).Str("role", user.Role).Msg("login succeeded")
	return user.Clone(), nil
}

func (m *Manager) loginFailure(email string, cause error) error {
	state := m.lockout.RecordFailure()
	if state.Locked() {
		m.logger.Warn().Str("email", email).Err(cause).Msg("login failed, lockout started")
		return &AuthError{Kind: KindLocked, RemainingMinutes: m.lockout.RemainingMinutes(), Err: cause}
	}

	kind := KindNetworkError
	if remote.IsRejected(cause) {
		kind = KindInvalidCredentials
	}
	remaining := m.lockout.RemainingAttempts()
	m.logger.Info().Str("email", email).Stringer("kind", kind).Int("remaining_attempts", remaining).Err(cause).Msg("login failed")
	return &AuthError{Kind: kind, RemainingAttempts: remaining, Err: cause}
}

// Logout ends the session. The remote service is told on a best-effort
// basis; its failures are logged and never returned. Calling Logout without
// a session is a no-op apart from clearing storage.
func (m *Manager) Logout(ctx context.Context, reason string) error {
	sessionID, _ := m.detach("")
	return m.logout(ctx, reason, sessionID)
}

// forceLogout ends sessionID only if it is still the current session.
func (m *Manager) forceLogout(ctx context.Context, reason, sessionID string) bool {
	if _, ok := m.detach(sessionID); !ok {
		return false
	}
	if err := m.logout(ctx, reason, sessionID); err != nil {
		m.logger.Err(err).Str("reason", reason).Msg("[Manager.forceLogout]")
	}
	return true
}

// logout clears a session already detached from its id.
func (m *Manager) logout(ctx context.Context, reason, sessionID string) error {
	m.timers.Disarm()

	if token := m.credentials.AccessToken(); token != "" {
		if err := m.remote.Logout(ctx, token); err != nil {
			m.logger.Warn().Err(err).Msg("remote logout notification failed")
		}
	}

	var errs []error
	if err := m.credentials.Clear(); err != nil {
		errs = append(errs, err)
	}
	if err := m.durable.Delete(UserKey); err != nil {
		errs = append(errs, errors.Wrap(err, "[Manager.Logout] deleting user record"))
	}
	m.end(reason, sessionID)
	return apperrors.Join(errs...)
}

// RestoreSession rebuilds the session from storage after a restart. A cached
// user whose token cannot be verified is trusted unless strict restore is on
// and the service explicitly rejected the token.
func (m *Manager) RestoreSession(ctx context.Context) (*users.User, error) {
	if u := m.User(); u != nil {
		return u, nil
	}

	var rec users.Record
	err := storage.GetJSON(m.durable, UserKey, &rec)
	switch {
	case apperrors.Is(err, storage.ErrNotFound):
		return nil, nil
	case err != nil || !rec.Valid():
		m.logger.Warn().Err(err).Msg("discarding unreadable user record")
		m.purge()
		return nil, nil
	}

	creds, ok, err := m.credentials.Load()
	if err != nil || !ok {
		m.logger.Info().Err(err).Msg("user record without credentials, discarding")
		m.purge()
		return nil, nil
	}

	if m.verifier != nil {
		if err := m.verifier.Verify(ctx, creds.AccessToken); err != nil {
			if m.strictRestore && remote.IsRejected(err) {
				m.logger.Info().Err(err).Msg("restored token rejected")
				if lerr := m.Logout(ctx, ReasonExpired); lerr != nil {
					m.logger.Err(lerr).Msg("[Manager.RestoreSession] clearing rejected session")
				}
				return nil, fmt.Errorf("[Manager.RestoreSession] %w: %w", apperrors.ErrInvalidToken, err)
			}
			m.logger.Warn().Err(&AuthError{Kind: KindValidationFallback, Err: err}).Msg("restoring cached session")
		}
	}

	user := rec.User()
	enrichFromClaims(user, creds)
	m.begin(user)
	m.logger.Info().Str("user_id", user.ID).Msg("session restored")
	return user.Clone(), nil
}

// RefreshSession swaps the refresh token for a new pair and re-arms the
// timers. A failure ends the session with ReasonExpired unless that session
// already ended while the request was in flight.
func (m *Manager) RefreshSession(ctx context.Context) error {
	m.mu.Lock()
	sessionID := m.sessionID
	m.mu.Unlock()
	if sessionID == "" {
		return errors.Wrap(ErrNotAuthenticated, "[Manager.RefreshSession]")
	}

	creds, ok, err := m.credentials.Load()
	if err == nil && (!ok || creds.RefreshToken == "") {
		err = apperrors.ErrNoRefreshToken
	}
	var pair *remote.TokenPair
	if err == nil {
		pair, err = m.remote.Refresh(ctx, creds.RefreshToken)
	}
	if err != nil {
		if !m.forceLogout(ctx, ReasonExpired, sessionID) {
			m.logger.Debug().Err(err).Str("session_id", sessionID).Msg("ignoring refresh failure of an ended session")
			return errors.Wrap(ErrNotAuthenticated, "[Manager.RefreshSession] session changed during refresh")
		}
		m.logger.Warn().Err(err).Msg("token refresh failed")
		return &AuthError{Kind: KindRefreshFailed, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessionID != sessionID {
		// the session ended or was replaced while the request was in flight
		return errors.Wrap(ErrNotAuthenticated, "[Manager.RefreshSession] session changed during refresh")
	}
	if err := m.credentials.Save(credentials.Credentials{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}); err != nil {
		return errors.Wrap(err, "[Manager.RefreshSession] saving credentials")
	}
	m.timers.Reset()
	m.logger.Debug().Str("session_id", sessionID).Msg("tokens refreshed")
	return nil
}

// RecordActivity pushes the idle timeout back. Ignored without a session.
func (m *Manager) RecordActivity() {
	if m.IsAuthenticated() {
		m.timers.Activity()
	}
}

// OnLogout registers a listener called with the reason whenever a session ends.
func (m *Manager) OnLogout(listener func(reason string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user != nil
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *users.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.Clone()
}

func (m *Manager) HasRole(role string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.HasRole(role)
}

func (m *Manager) HasPermission(permission string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.HasPermission(permission)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Lockout() *lockout.Tracker {
	return m.lockout
}

func (m *Manager) Timers() *timers.Coordinator {
	return m.timers
}

// Close stops timers and watchers. Persisted state is left in place so the
// session can be restored by the next process.
func (m *Manager) Close() error {
	m.timers.Disarm()
	m.mu.Lock()
	cancel := m.watchCancel
	m.watchCancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (m *Manager) setAuthenticating(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != nil {
		return
	}
	if on {
		m.state = Authenticating
	} else {
		m.state = Unauthenticated
	}
}

// begin installs user as the current session and arms the timers.
func (m *Manager) begin(user *users.User) {
	m.mu.Lock()
	m.user = user
	m.state = Authenticated
	m.sessionID = uuid.New().String()
	m.mu.Unlock()

	m.timers.Arm(m.onIdleTimeout, m.onRefreshDue)
}

// detach clears the current session id so that refreshes in flight discard
// their result. With expected set, only that session is detached.
func (m *Manager) detach(expected string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expected != "" && m.sessionID != expected {
		return "", false
	}
	sessionID := m.sessionID
	m.sessionID = ""
	return sessionID, true
}

// end clears the in-memory session and notifies listeners if one existed.
func (m *Manager) end(reason, sessionID string) {
	m.mu.Lock()
	hadSession := m.user != nil
	m.user = nil
	m.state = Unauthenticated
	m.sessionID = ""
	listeners := append([]func(string){}, m.listeners...)
	m.mu.Unlock()

	if !hadSession {
		return
	}
	m.logger.Info().Str("session_id", sessionID).Str("reason", reason).Msg("session ended")
	for _, l := range listeners {
		l(reason)
	}
}

// purge removes a persisted user that can no longer back a session.
func (m *Manager) purge() {
	if err := m.durable.Delete(UserKey); err != nil {
		m.logger.Err(err).Msg("[Manager.purge] deleting user record")
	}
	if err := m.credentials.Clear(); err != nil {
		m.logger.Err(err).Msg("[Manager.purge] clearing credentials")
	}
}

func (m *Manager) onIdleTimeout() {
	if err := m.Logout(context.Background(), ReasonIdle); err != nil {
		m.logger.Err(err).Msg("[Manager.onIdleTimeout]")
	}
}

func (m *Manager) onRefreshDue() {
	if err := m.RefreshSession(context.Background()); err != nil {
		m.logger.Err(err).Msg("[Manager.onRefreshDue]")
	}
}

// startWatch follows changes other processes make to the durable store. A
// removed user record means the session was ended elsewhere.
func (m *Manager) startWatch() {
	watcher, ok := m.durable.(storage.Watcher)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := watcher.Watch(ctx, m.onDurableChange); err != nil {
		cancel()
		m.logger.Debug().Err(err).Msg("cross-process session sync disabled")
		return
	}
	m.watchCancel = cancel
}

func (m *Manager) onDurableChange(key string) {
	if key != UserKey || !m.IsAuthenticated() {
		return
	}
	if _, err := m.durable.Get(UserKey); !apperrors.Is(err, storage.ErrNotFound) {
		return
	}
	sessionID, _ := m.detach("")
	m.timers.Disarm()
	if err := m.credentials.Clear(); err != nil {
		m.logger.Err(err).Msg("[Manager.onDurableChange] clearing credentials")
	}
	m.end(ReasonSignedOutElsewhere, sessionID)
}

// enrichFromClaims fills roles and permissions the login response did not
// carry from the access token claims, when it is a JWT.
func enrichFromClaims(user *users.User, creds credentials.Credentials) {
	claims, ok := creds.Claims()
	if !ok {
		return
	}
	if roles := utils.ToStringSlice(claims["roles"]); len(user.Roles) == 0 && len(roles) > 0 {
		user.Roles = roles
	}
	if perms := utils.ToStringSlice(claims["permissions"]); len(user.Permissions) == 0 && len(perms) > 0 {
		user.Permissions = perms
	}
	if user.Role == "" {
		if role, ok := claims["role"].(string); ok {
			user.Role = role
		}
	}
}
