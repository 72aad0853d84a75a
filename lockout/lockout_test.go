package lockout_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/lockout"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/memstore"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	attempts int
	duration time.Duration
}

func (c testConfig) GetMaxLoginAttempts() int          { return c.attempts }
func (c testConfig) GetLockoutDuration() time.Duration { return c.duration }

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *clock {
	return &clock{now: time.UnixMilli(1_700_000_000_000)}
}

func defaultConfig() testConfig {
	return testConfig{attempts: 5, duration: 15 * time.Minute}
}

func newTracker(s storage.Store, c *clock) *lockout.Tracker {
	return lockout.New(s, defaultConfig(), lockout.WithNowFunc(c.Now))
}

func TestTracker_LocksAfterExactlyMaxFailures(t *testing.T) {
	for n := 1; n <= 6; n++ {
		c := newClock()
		tr := lockout.New(memstore.New(), testConfig{attempts: n, duration: time.Minute}, lockout.WithNowFunc(c.Now))

		for i := 1; i < n; i++ {
			state := tr.RecordFailure()
			require.False(t, state.Locked(), "locked after %d of %d", i, n)
			require.False(t, tr.IsLocked())
			require.Equal(t, n-i, tr.RemainingAttempts())
		}
		state := tr.RecordFailure()
		require.True(t, state.Locked())
		require.True(t, tr.IsLocked())
		require.Equal(t, 0, tr.RemainingAttempts())
		require.Equal(t, c.Now().Add(time.Minute), *state.LockedUntil)
	}
}

func TestTracker_StaysLockedUntilWindowElapses(t *testing.T) {
	c := newClock()
	s := memstore.New()
	tr := newTracker(s, c)
	for range 5 {
		tr.RecordFailure()
	}

	last := tr.RemainingMillis()
	require.Equal(t, (15 * time.Minute).Milliseconds(), last)
	for range 14 {
		c.Advance(time.Minute)
		require.True(t, tr.IsLocked())
		remaining := tr.RemainingMillis()
		require.LessOrEqual(t, remaining, last)
		last = remaining
	}

	c.Advance(59 * time.Second)
	require.True(t, tr.IsLocked())
	require.Equal(t, 1, tr.RemainingMinutes())

	c.Advance(time.Second)
	require.Equal(t, int64(0), tr.RemainingMillis())
	require.False(t, tr.IsLocked())

	c.Advance(time.Hour)
	require.Equal(t, int64(0), tr.RemainingMillis())

	// expiry purges the durable records
	_, err := s.Get(lockout.LockoutKey)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.Equal(t, 5, tr.RemainingAttempts())
}

func TestTracker_RemainingStableWithoutClockMovement(t *testing.T) {
	c := newClock()
	tr := newTracker(memstore.New(), c)
	for range 5 {
		tr.RecordFailure()
	}
	first := tr.RemainingMillis()
	for range 10 {
		require.Equal(t, first, tr.RemainingMillis())
	}
}

func TestTracker_SuccessResets(t *testing.T) {
	for failures := 0; failures < 5; failures++ {
		c := newClock()
		s := memstore.New()
		tr := newTracker(s, c)
		for range failures {
			tr.RecordFailure()
		}

		tr.RecordSuccess()
		require.Equal(t, lockout.State{}, tr.State())
		require.Equal(t, 5, tr.RemainingAttempts())
		_, err := s.Get(lockout.AttemptsKey)
		require.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.Get(lockout.LockoutKey)
		require.ErrorIs(t, err, storage.ErrNotFound)
	}
}

func TestTracker_PersistedAcrossRestart(t *testing.T) {
	t.Run("active lockout survives", func(t *testing.T) {
		c := newClock()
		s := memstore.New()
		tr := newTracker(s, c)
		for range 5 {
			tr.RecordFailure()
		}

		var rec struct {
			Timestamp int64 `json:"timestamp"`
			Attempts  int   `json:"attempts"`
		}
		require.NoError(t, storage.GetJSON(s, lockout.LockoutKey, &rec))
		require.Equal(t, c.Now().UnixMilli(), rec.Timestamp)
		require.Equal(t, 5, rec.Attempts)

		c.Advance(5 * time.Minute)
		restarted := newTracker(s, c)
		require.True(t, restarted.IsLocked())
		require.Equal(t, 10*time.Minute, restarted.Remaining())
	})

	t.Run("expired lockout purged on construction", func(t *testing.T) {
		c := newClock()
		s := memstore.New()
		require.NoError(t, storage.SetJSON(s, lockout.LockoutKey, map[string]int64{
			"timestamp": c.Now().Add(-16 * time.Minute).UnixMilli(),
			"attempts":  5,
		}))

		tr := newTracker(s, c)
		require.False(t, tr.IsLocked())
		_, err := s.Get(lockout.LockoutKey)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("partial count survives", func(t *testing.T) {
		c := newClock()
		s := memstore.New()
		tr := newTracker(s, c)
		tr.RecordFailure()
		tr.RecordFailure()

		restarted := newTracker(s, c)
		require.Equal(t, 3, restarted.RemainingAttempts())
		for range 3 {
			restarted.RecordFailure()
		}
		require.True(t, restarted.IsLocked())
	})

	t.Run("corrupt record ignored", func(t *testing.T) {
		c := newClock()
		s := memstore.New()
		require.NoError(t, s.Set(lockout.LockoutKey, []byte("{")))

		tr := newTracker(s, c)
		require.False(t, tr.IsLocked())
		require.Equal(t, 5, tr.RemainingAttempts())
	})
}

func TestTracker_FailureWhileLockedKeepsWindow(t *testing.T) {
	c := newClock()
	tr := newTracker(memstore.New(), c)
	for range 5 {
		tr.RecordFailure()
	}
	until := *tr.State().LockedUntil

	c.Advance(time.Minute)
	state := tr.RecordFailure()
	require.Equal(t, until, *state.LockedUntil)
	require.Equal(t, 6, state.FailedAttempts)
}

func TestCeilMinutes(t *testing.T) {
	require.Equal(t, 0, lockout.CeilMinutes(0))
	require.Equal(t, 0, lockout.CeilMinutes(-time.Second))
	require.Equal(t, 1, lockout.CeilMinutes(time.Millisecond))
	require.Equal(t, 1, lockout.CeilMinutes(time.Minute))
	require.Equal(t, 15, lockout.CeilMinutes(14*time.Minute+time.Second))
}
