package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/credentials"
	"github.com/jrsteele09/go-auth-session/lockout"
	"github.com/jrsteele09/go-auth-session/remote"
	"github.com/jrsteele09/go-auth-session/remote/remotefake"
	"github.com/jrsteele09/go-auth-session/session"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/memstore"
	"github.com/jrsteele09/go-auth-session/timers"
	"github.com/jrsteele09/go-auth-session/timers/faketimers"
	"github.com/jrsteele09/go-auth-session/users"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "awa.diallo@example.com"
	testPassword = "correct horse"
)

type testConfig struct {
	maxAttempts int
	lockout     time.Duration
	timeout     time.Duration
	threshold   time.Duration
	coalesce    time.Duration
	strict      bool
}

func (c testConfig) GetMaxLoginAttempts() int                 { return c.maxAttempts }
func (c testConfig) GetLockoutDuration() time.Duration        { return c.lockout }
func (c testConfig) GetSessionTimeout() time.Duration         { return c.timeout }
func (c testConfig) GetRefreshThreshold() time.Duration       { return c.threshold }
func (c testConfig) GetActivityCoalesceWindow() time.Duration { return c.coalesce }
func (c testConfig) GetStrictRestore() bool                   { return c.strict }

func defaultConfig() testConfig {
	return testConfig{
		maxAttempts: 5,
		lockout:     900000 * time.Millisecond,
		timeout:     3600000 * time.Millisecond,
		threshold:   300000 * time.Millisecond,
	}
}

type testFixture struct {
	cfg      testConfig
	remote   *remotefake.FakeService
	volatile *memstore.Store
	durable  *memstore.Store
	clock    *faketimers.Scheduler
	start    time.Time

	mu      sync.Mutex
	reasons []string
}

func newTestFixture() *testFixture {
	start := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	svc := remotefake.NewFakeService()
	svc.AddAccount(testEmail, testPassword, users.User{ID: "user-42", Name: "Awa Diallo", Role: "agent", Permissions: []string{"transfers:read"}})
	return &testFixture{
		cfg:      defaultConfig(),
		remote:   svc,
		volatile: memstore.New(),
		durable:  memstore.New(),
		clock:    faketimers.New(start),
		start:    start,
	}
}

func (tf *testFixture) manager(options ...session.Option) *session.Manager {
	opts := append([]session.Option{session.WithScheduler(tf.clock)}, options...)
	m := session.New(tf.cfg, tf.remote, session.Stores{Volatile: tf.volatile, Durable: tf.durable}, opts...)
	m.OnLogout(func(reason string) {
		tf.mu.Lock()
		defer tf.mu.Unlock()
		tf.reasons = append(tf.reasons, reason)
	})
	return m
}

func (tf *testFixture) logoutReasons() []string {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return append([]string(nil), tf.reasons...)
}

func (tf *testFixture) storedCredentials(t *testing.T) (credentials.Credentials, bool) {
	t.Helper()
	c, ok, err := credentials.NewStore(tf.volatile).Load()
	require.NoError(t, err)
	return c, ok
}

func (tf *testFixture) storedUser(t *testing.T) (users.Record, bool) {
	t.Helper()
	var rec users.Record
	err := storage.GetJSON(tf.durable, session.UserKey, &rec)
	if errors.Is(err, storage.ErrNotFound) {
		return rec, false
	}
	require.NoError(t, err)
	return rec, true
}

func TestManager_LoginSuccess(t *testing.T) {
	tf := newTestFixture()
	m := tf.manager()
	ctx := context.Background()

	require.Equal(t, session.Unauthenticated, m.State())
	require.False(t, m.IsAuthenticated())

	user, err := m.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, "user-42", user.ID)
	require.Equal(t, "Awa Diallo", user.Name)
	require.Equal(t, testEmail, user.Email)
	require.Equal(t, "agent", user.Role)

	require.Equal(t, session.Authenticated, m.State())
	require.True(t, m.IsAuthenticated())
	require.True(t, m.HasRole("agent"))
	require.False(t, m.HasRole("admin"))
	require.True(t, m.HasPermission("transfers:read"))
	require.False(t, m.HasPermission("transfers:write"))

	creds, ok := tf.storedCredentials(t)
	require.True(t, ok)
	require.Equal(t, "access-1", creds.AccessToken)
	require.Equal(t, "refresh-1", creds.RefreshToken)

	rec, ok := tf.storedUser(t)
	require.True(t, ok)
	require.Equal(t, users.Record{ID: "user-42", Name: "Awa Diallo", Email: testEmail, Role: "agent"}, rec)

	// refresh at t+3300000ms, idle at t+3600000ms
	require.Equal(t, tf.start.Add(3300000*time.Millisecond), m.Timers().RefreshDueAt())
	require.Equal(t, tf.start.Add(3600000*time.Millisecond), m.Timers().IdleDueAt())
	require.Equal(t, timers.Armed, m.Timers().IdleState())
	require.Equal(t, timers.Armed, m.Timers().RefreshState())

	// the returned user is a copy
	user.Role = "admin"
	require.False(t, m.HasRole("admin"))
}

func TestManager_LoginFailures(t *testing.T) {
	t.Run("rejection reports remaining attempts", func(t *testing.T) {
		tf := newTestFixture()
		m := tf.manager()

		for remaining := 4; remaining >= 1; remaining-- {
			_, err := m.Login(context.Background(), testEmail, "wrong")
			var authErr *session.AuthError
			require.ErrorAs(t, err, &authErr)
			require.Equal(t, session.KindInvalidCredentials, authErr.Kind)
			require.Equal(t, remaining, authErr.RemainingAttempts)
			require.ErrorIs(t, err, session.ErrInvalidCredentials)
			require.ErrorIs(t, err, remote.ErrRejected)
			require.Contains(t, err.Error(), "tentative")
		}
		require.Equal(t, session.Unauthenticated, m.State())
		_, ok := tf.storedCredentials(t)
		require.False(t, ok)
	})

	t.Run("transport failure is a network error", func(t *testing.T) {
		tf := newTestFixture()
		tf.remote.SetLoginErr(remote.ErrUnreachable)
		m := tf.manager()

		_, err := m.Login(context.Background(), testEmail, testPassword)
		var authErr *session.AuthError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, session.KindNetworkError, authErr.Kind)
		require.Equal(t, 4, authErr.RemainingAttempts)
		require.ErrorIs(t, err, session.ErrNetwork)
	})
}

func TestManager_LockoutAfterMaxFailures(t *testing.T) {
	tf := newTestFixture()
	m := tf.manager()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := m.Login(ctx, testEmail, "wrong")
		require.ErrorIs(t, err, session.ErrInvalidCredentials)
	}

	// the fifth failure starts the lockout
	_, err := m.Login(ctx, testEmail, "wrong")
	var authErr *session.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, session.KindLocked, authErr.Kind)
	require.Equal(t, 15, authErr.RemainingMinutes)
	require.Equal(t, 5, tf.remote.LoginCalls())

	// the sixth attempt fails without reaching the service, even with the right password
	tf.clock.Advance(time.Minute)
	_, err = m.Login(ctx, testEmail, testPassword)
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, session.KindLocked, authErr.Kind)
	require.Positive(t, authErr.RemainingMinutes)
	require.Equal(t, 14, authErr.RemainingMinutes)
	require.ErrorIs(t, err, session.ErrLocked)
	require.Contains(t, err.Error(), "14 minute")
	require.Equal(t, 5, tf.remote.LoginCalls())
	require.False(t, m.IsAuthenticated())

	// a restart does not lift the lockout
	restarted := tf.manager()
	_, err = restarted.Login(ctx, testEmail, testPassword)
	require.ErrorIs(t, err, session.ErrLocked)
	require.Equal(t, 5, tf.remote.LoginCalls())

	// once the window elapses the right password works again
	tf.clock.Advance(14 * time.Minute)
	_, err = m.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, lockout.State{}, m.Lockout().State())
}

func TestManager_SuccessResetsFailures(t *testing.T) {
	tf := newTestFixture()
	m := tf.manager()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = m.Login(ctx, testEmail, "wrong")
	}
	_, err := m.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.Equal(t, 0, m.Lockout().State().FailedAttempts)
	require.Equal(t, 5, m.Lockout().RemainingAttempts())

	require.NoError(t, m.Logout(ctx, session.ReasonUser))
	_, err = m.Login(ctx, testEmail, "wrong")
	var authErr *session.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, 4, authErr.RemainingAttempts)
}

func TestManager_ConcurrentLoginRejected(t *testing.T) {
	tf := newTestFixture()
	gate := make(chan struct{})
	tf.remote.LoginGate = gate
	m := tf.manager()

	done := make(chan error, 1)
	go func() {
		_, err := m.Login(context.Background(), testEmail, testPassword)
		done <- err
	}()

	require.Eventually(t, func() bool { return tf.remote.LoginCalls() == 1 }, time.Second, time.Millisecond)
	require.Equal(t, session.Authenticating, m.State())

	_, err := m.Login(context.Background(), testEmail, testPassword)
	require.ErrorIs(t, err, session.ErrLoginInProgress)
	require.Equal(t, 1, tf.remote.LoginCalls())
	require.Equal(t, 0, m.Lockout().State().FailedAttempts)

	close(gate)
	require.NoError(t, <-done)
	require.True(t, m.IsAuthenticated())
}

func TestManager_Logout(t *testing.T) {
	tf := newTestFixture()
	m := tf.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, session.ReasonUser))
	require.False(t, m.IsAuthenticated())
	require.Equal(t, session.Unauthenticated, m.State())
	require.Nil(t, m.User())
	require.False(t, m.HasRole("agent"))
	require.Equal(t, 1, tf.remote.LogoutCalls())
	require.Equal(t, []string{session.ReasonUser}, tf.logoutReasons())
	require.Empty(t, tf.clock.Pending())

	_, ok := tf.storedCredentials(t)
	require.False(t, ok)
	_, ok = tf.storedUser(t)
	require.False(t, ok)

	// idempotent
	require.NoError(t, m.Logout(ctx, session.ReasonUser))
	require.Equal(t, 1, tf.remote.LogoutCalls())
	require.Len(t, tf.logoutReasons(), 1)

	// nothing survives logout
	restored, err := m.RestoreSession(ctx)
	require.NoError(t, err)
	require.Nil(t, restored)
	require.False(t, m.IsAuthenticated())

	restarted, err := tf.manager().RestoreSession(ctx)
	require.NoError(t, err)
	require.Nil(t, restarted)
}

func TestManager_LogoutRemoteFailureIsNotPropagated(t *testing.T) {
	tf := newTestFixture()
	tf.remote.LogoutErr = remote.ErrUnreachable
	m := tf.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.NoError(t, m.Logout(ctx, session.ReasonUser))
	require.False(t, m.IsAuthenticated())
	_, ok := tf.storedUser(t)
	require.False(t, ok)
}

func TestManager_RestoreSession(t *testing.T) {
	ctx := context.Background()

	loggedIn := func(t *testing.T, tf *testFixture) {
		t.Helper()
		m := tf.manager()
		_, err := m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)
		require.NoError(t, m.Close())
	}

	t.Run("nothing persisted", func(t *testing.T) {
		tf := newTestFixture()
		user, err := tf.manager().RestoreSession(ctx)
		require.NoError(t, err)
		require.Nil(t, user)
	})

	t.Run("verified token restores and arms", func(t *testing.T) {
		tf := newTestFixture()
		loggedIn(t, tf)

		m := tf.manager()
		user, err := m.RestoreSession(ctx)
		require.NoError(t, err)
		require.Equal(t, "user-42", user.ID)
		require.Equal(t, "agent", user.Role)
		require.True(t, m.IsAuthenticated())
		require.Equal(t, timers.Armed, m.Timers().IdleState())
		require.Equal(t, 1, tf.remote.VerifyCalls())

		// restoring again is a no-op
		_, err = m.RestoreSession(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, tf.remote.VerifyCalls())
	})

	t.Run("unreachable verifier trusts the cache", func(t *testing.T) {
		tf := newTestFixture()
		loggedIn(t, tf)
		tf.remote.SetVerifyErr(remote.ErrUnreachable)

		m := tf.manager(session.WithStrictRestore(true))
		user, err := m.RestoreSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, user)
		require.True(t, m.IsAuthenticated())
	})

	t.Run("rejected token trusted by default", func(t *testing.T) {
		tf := newTestFixture()
		loggedIn(t, tf)
		tf.remote.Revoke("access-1")

		m := tf.manager()
		user, err := m.RestoreSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, user)
		require.True(t, m.IsAuthenticated())
	})

	t.Run("rejected token logs out in strict mode", func(t *testing.T) {
		tf := newTestFixture()
		loggedIn(t, tf)
		tf.remote.Revoke("access-1")

		m := tf.manager(session.WithStrictRestore(true))
		user, err := m.RestoreSession(ctx)
		require.Error(t, err)
		require.ErrorIs(t, err, remote.ErrRejected)
		var statusErr *remote.StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, 401, statusErr.StatusCode)
		require.Nil(t, user)
		require.False(t, m.IsAuthenticated())
		_, ok := tf.storedUser(t)
		require.False(t, ok)
		require.Empty(t, tf.clock.Pending())
	})

	t.Run("strict mode from config", func(t *testing.T) {
		tf := newTestFixture()
		tf.cfg.strict = true
		loggedIn(t, tf)
		tf.remote.Revoke("access-1")

		_, err := tf.manager().RestoreSession(ctx)
		require.Error(t, err)
	})

	t.Run("nil verifier skips verification", func(t *testing.T) {
		tf := newTestFixture()
		loggedIn(t, tf)

		m := tf.manager(session.WithVerifier(nil))
		user, err := m.RestoreSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, user)
		require.Equal(t, 0, tf.remote.VerifyCalls())
	})

	t.Run("user without credentials is purged", func(t *testing.T) {
		tf := newTestFixture()
		loggedIn(t, tf)
		require.NoError(t, credentials.NewStore(tf.volatile).Clear())

		m := tf.manager()
		user, err := m.RestoreSession(ctx)
		require.NoError(t, err)
		require.Nil(t, user)
		_, ok := tf.storedUser(t)
		require.False(t, ok)
	})

	t.Run("unreadable user record is purged", func(t *testing.T) {
		tf := newTestFixture()
		require.NoError(t, tf.durable.Set(session.UserKey, []byte("{not json")))

		user, err := tf.manager().RestoreSession(ctx)
		require.NoError(t, err)
		require.Nil(t, user)
		_, err = tf.durable.Get(session.UserKey)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestManager_RefreshSession(t *testing.T) {
	ctx := context.Background()

	t.Run("success rotates tokens and re-arms", func(t *testing.T) {
		tf := newTestFixture()
		m := tf.manager()
		_, err := m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		tf.clock.Advance(10 * time.Minute)
		require.NoError(t, m.RefreshSession(ctx))

		creds, _ := tf.storedCredentials(t)
		require.Equal(t, "access-2", creds.AccessToken)
		require.Equal(t, "refresh-2", creds.RefreshToken)
		require.Equal(t, tf.start.Add(70*time.Minute), m.Timers().IdleDueAt())
		require.Equal(t, tf.start.Add(65*time.Minute), m.Timers().RefreshDueAt())
		require.Len(t, tf.clock.Pending(), 2)
	})

	t.Run("rejection ends the session and cancels timers", func(t *testing.T) {
		tf := newTestFixture()
		m := tf.manager()
		_, err := m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		tf.remote.SetRefreshErr(&remote.StatusError{StatusCode: 401})
		err = m.RefreshSession(ctx)
		require.ErrorIs(t, err, session.ErrRefreshFailed)
		require.ErrorIs(t, err, remote.ErrRejected)
		require.Equal(t, session.ReasonExpired, err.Error())

		require.Equal(t, session.Unauthenticated, m.State())
		require.Equal(t, timers.Idle, m.Timers().IdleState())
		require.Equal(t, timers.Idle, m.Timers().RefreshState())
		require.Empty(t, tf.clock.Pending())
		require.Equal(t, []string{session.ReasonExpired}, tf.logoutReasons())
		_, ok := tf.storedUser(t)
		require.False(t, ok)
	})

	t.Run("without a session", func(t *testing.T) {
		tf := newTestFixture()
		err := tf.manager().RefreshSession(ctx)
		require.ErrorIs(t, err, session.ErrNotAuthenticated)
		require.Equal(t, 0, tf.remote.RefreshCalls())
	})
}

// deleteHookStore calls onDelete before removing a key.
type deleteHookStore struct {
	*memstore.Store
	onDelete func(key string)
}

func (s *deleteHookStore) Delete(key string) error {
	if s.onDelete != nil {
		s.onDelete(key)
	}
	return s.Store.Delete(key)
}

func TestManager_RefreshInFlight(t *testing.T) {
	ctx := context.Background()

	startRefresh := func(t *testing.T, tf *testFixture, m *session.Manager) (chan struct{}, chan error) {
		t.Helper()
		gate := make(chan struct{})
		tf.remote.RefreshGate = gate
		done := make(chan error, 1)
		go func() {
			done <- m.RefreshSession(ctx)
		}()
		require.Eventually(t, func() bool { return tf.remote.RefreshCalls() == 1 }, time.Second, time.Millisecond)
		return gate, done
	}

	t.Run("activity during refresh keeps the session armed", func(t *testing.T) {
		tf := newTestFixture()
		m := tf.manager()
		_, err := m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		gate, done := startRefresh(t, tf, m)
		tf.clock.Advance(5 * time.Minute)
		m.RecordActivity()
		close(gate)
		require.NoError(t, <-done)

		require.True(t, m.IsAuthenticated())
		creds, _ := tf.storedCredentials(t)
		require.Equal(t, "access-2", creds.AccessToken)
		require.Equal(t, timers.Armed, m.Timers().IdleState())
		require.Equal(t, tf.start.Add(65*time.Minute), m.Timers().IdleDueAt())
		require.Len(t, tf.clock.Pending(), 2)
	})

	t.Run("failure of an ended session leaves the new session alone", func(t *testing.T) {
		tf := newTestFixture()
		m := tf.manager()
		_, err := m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		gate, done := startRefresh(t, tf, m)
		require.NoError(t, m.Logout(ctx, session.ReasonUser))
		_, err = m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		tf.remote.SetRefreshErr(&remote.StatusError{StatusCode: 401})
		close(gate)
		err = <-done
		require.ErrorIs(t, err, session.ErrNotAuthenticated)
		require.NotErrorIs(t, err, session.ErrRefreshFailed)

		require.True(t, m.IsAuthenticated())
		creds, ok := tf.storedCredentials(t)
		require.True(t, ok)
		require.Equal(t, "access-2", creds.AccessToken)
		_, ok = tf.storedUser(t)
		require.True(t, ok)
		require.Len(t, tf.clock.Pending(), 2)
		require.Equal(t, []string{session.ReasonUser}, tf.logoutReasons())
	})

	t.Run("success landing during logout is discarded", func(t *testing.T) {
		tf := newTestFixture()
		durable := &deleteHookStore{Store: tf.durable}
		m := session.New(tf.cfg, tf.remote, session.Stores{Volatile: tf.volatile, Durable: durable}, session.WithScheduler(tf.clock))
		_, err := m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		gate, done := startRefresh(t, tf, m)
		var (
			once       sync.Once
			refreshErr error
		)
		// credentials are already cleared when the user record goes
		durable.onDelete = func(key string) {
			if key != session.UserKey {
				return
			}
			once.Do(func() {
				close(gate)
				refreshErr = <-done
			})
		}

		require.NoError(t, m.Logout(ctx, session.ReasonUser))
		require.ErrorIs(t, refreshErr, session.ErrNotAuthenticated)

		require.False(t, m.IsAuthenticated())
		_, ok := tf.storedCredentials(t)
		require.False(t, ok)
		_, ok = tf.storedUser(t)
		require.False(t, ok)
		require.Empty(t, tf.clock.Pending())
	})
}

func TestManager_TimerCallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("refresh fires before the idle timeout", func(t *testing.T) {
		tf := newTestFixture()
		m := tf.manager()
		_, err := m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		tf.clock.Advance(55 * time.Minute)
		require.Equal(t, 1, tf.remote.RefreshCalls())
		require.True(t, m.IsAuthenticated())
		creds, _ := tf.storedCredentials(t)
		require.Equal(t, "access-2", creds.AccessToken)
		require.Equal(t, tf.start.Add(110*time.Minute), m.Timers().RefreshDueAt())
	})

	t.Run("failed background refresh forces logout", func(t *testing.T) {
		tf := newTestFixture()
		m := tf.manager()
		_, err := m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		tf.remote.SetRefreshErr(remote.ErrUnreachable)
		tf.clock.Advance(2 * time.Hour)
		require.False(t, m.IsAuthenticated())
		require.Equal(t, []string{session.ReasonExpired}, tf.logoutReasons())
		require.Empty(t, tf.clock.Pending())
	})

	t.Run("idle timeout logs out", func(t *testing.T) {
		tf := newTestFixture()
		tf.cfg.threshold = 0
		m := tf.manager()
		_, err := m.Login(ctx, testEmail, testPassword)
		require.NoError(t, err)

		tf.clock.Advance(30 * time.Minute)
		m.RecordActivity()
		tf.clock.Advance(59 * time.Minute)
		require.True(t, m.IsAuthenticated())

		tf.clock.Advance(time.Minute)
		require.False(t, m.IsAuthenticated())
		require.Equal(t, []string{session.ReasonIdle}, tf.logoutReasons())
		require.Equal(t, 1, tf.remote.LogoutCalls())
	})

	t.Run("activity without a session does nothing", func(t *testing.T) {
		tf := newTestFixture()
		m := tf.manager()
		m.RecordActivity()
		require.Empty(t, tf.clock.Pending())
	})
}

func TestManager_CloseKeepsPersistedSession(t *testing.T) {
	tf := newTestFixture()
	m := tf.manager()
	ctx := context.Background()

	_, err := m.Login(ctx, testEmail, testPassword)
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.Empty(t, tf.clock.Pending())
	require.Empty(t, tf.logoutReasons())

	_, ok := tf.storedUser(t)
	require.True(t, ok)
	_, ok = tf.storedCredentials(t)
	require.True(t, ok)
}

func TestAuthError(t *testing.T) {
	locked := &session.AuthError{Kind: session.KindLocked, RemainingMinutes: 3}
	require.ErrorIs(t, locked, session.ErrLocked)
	require.NotErrorIs(t, locked, session.ErrInvalidCredentials)
	require.Equal(t, "Trop de tentatives échouées. Réessayez dans 3 minute(s).", locked.Error())

	cause := errors.New("boom")
	wrapped := &session.AuthError{Kind: session.KindRefreshFailed, Err: cause}
	require.ErrorIs(t, wrapped, cause)
	require.Equal(t, "RefreshFailed", session.KindRefreshFailed.String())
	require.Equal(t, "ValidationFallback", session.KindValidationFallback.String())
}
