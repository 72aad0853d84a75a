// Package lockout throttles repeated failed logins. After the configured
// number of consecutive failures further attempts are refused until the
// lockout window elapses. State is kept in a durable store so a restart
// does not lift an active lockout.
package lockout

import (
	"math"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// LockoutKey holds {timestamp, attempts} while a lockout is active
	LockoutKey = "loginLockout"
	// AttemptsKey holds the failure count below the threshold
	AttemptsKey = "loginAttempts"
)

// Config is the subset of the session configuration the tracker needs.
type Config interface {
	GetMaxLoginAttempts() int
	GetLockoutDuration() time.Duration
}

// State is a snapshot of the tracker.
type State struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// Locked reports whether the snapshot carries an active lockout
func (s State) Locked() bool {
	return s.LockedUntil != nil
}

type persistedLockout struct {
	Timestamp int64 `json:"timestamp"` // lock start, unix millis
	Attempts  int   `json:"attempts"`
}

type persistedAttempts struct {
	Attempts int `json:"attempts"`
}

type Option func(*Tracker)

// WithNowFunc replaces the clock, mainly for tests
func WithNowFunc(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// Tracker counts failed logins and enforces the lockout window.
type Tracker struct {
	store       storage.Store
	maxAttempts int
	duration    time.Duration
	now         func() time.Time
	logger      zerolog.Logger

	mu          sync.Mutex
	attempts    int
	lockedSince *time.Time
}

// New builds a tracker over a durable store. Persisted state is read once and
// purged if its window has already elapsed.
func New(store storage.Store, cfg Config, options ...Option) *Tracker {
	t := &Tracker{
		store:       store,
		maxAttempts: cfg.GetMaxLoginAttempts(),
		duration:    cfg.GetLockoutDuration(),
		now:         time.Now,
		logger:      log.Logger,
	}
	for _, opt := range options {
		opt(t)
	}
	if t.maxAttempts <= 0 {
		t.maxAttempts = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadLocked()
	t.expireLocked()
	return t
}

// RecordFailure counts a failed login and locks once the threshold is reached.
func (t *Tracker) RecordFailure() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loadLocked()
	t.expireLocked()

	t.attempts++
	if t.lockedSince == nil && t.attempts >= t.maxAttempts {
		now := t.now()
		t.lockedSince = &now
		t.logger.Warn().Int("attempts", t.attempts).Time("until", now.Add(t.duration)).Msg("login locked")
	}
	t.saveLocked()
	return t.stateLocked()
}

// RecordSuccess resets the counter and removes any lockout record.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Tracker) IsLocked() bool {
	return t.Remaining() > 0
}

// Remaining is the time left on the lockout, zero when not locked.
func (t *Tracker) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loadLocked()
	t.expireLocked()
	return t.remainingLocked()
}

func (t *Tracker) RemainingMillis() int64 {
	return t.Remaining().Milliseconds()
}

// RemainingMinutes rounds the lockout time up to whole minutes.
func (t *Tracker) RemainingMinutes() int {
	return CeilMinutes(t.Remaining())
}

// RemainingAttempts is the number of failures still allowed before lockout.
func (t *Tracker) RemainingAttempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loadLocked()
	t.expireLocked()
	if t.lockedSince != nil {
		return 0
	}
	return max(t.maxAttempts-t.attempts, 0)
}

func (t *Tracker) MaxAttempts() int {
	return t.maxAttempts
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.loadLocked()
	t.expireLocked()
	return t.stateLocked()
}

// CeilMinutes converts d to minutes, rounding any partial minute up.
func CeilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Minutes()))
}

func (t *Tracker) stateLocked() State {
	s := State{FailedAttempts: t.attempts}
	if t.lockedSince != nil {
		s.LockedUntil = utils.Ptr(t.lockedSince.Add(t.duration))
	}
	return s
}

func (t *Tracker) remainingLocked() time.Duration {
	if t.lockedSince == nil {
		return 0
	}
	return max(t.lockedSince.Add(t.duration).Sub(t.now()), 0)
}

// expireLocked lifts a lockout whose window has elapsed.
func (t *Tracker) expireLocked() {
	if t.lockedSince == nil || t.remainingLocked() > 0 {
		return
	}
	t.logger.Info().Msg("login lockout expired")
	t.resetLocked()
}

func (t *Tracker) resetLocked() {
	t.attempts = 0
	t.lockedSince = nil
	if err := t.store.Delete(LockoutKey); err != nil {
		t.logger.Err(err).Msg("[Tracker.reset] deleting lockout record")
	}
	if err := t.store.Delete(AttemptsKey); err != nil {
		t.logger.Err(err).Msg("[Tracker.reset] deleting attempts record")
	}
}

// loadLocked refreshes the in-memory view from the store. Another process
// sharing the store may have recorded failures or cleared the lockout.
func (t *Tracker) loadLocked() {
	var lock persistedLockout
	err := storage.GetJSON(t.store, LockoutKey, &lock)
	switch {
	case err == nil && lock.Timestamp > 0:
		since := time.UnixMilli(lock.Timestamp)
		t.lockedSince = &since
		t.attempts = max(lock.Attempts, t.maxAttempts)
		return
	case err != nil && !apperrors.Is(err, storage.ErrNotFound):
		t.logger.Err(err).Msg("[Tracker.load] ignoring unreadable lockout record")
		_ = t.store.Delete(LockoutKey)
	}
	t.lockedSince = nil

	var attempts persistedAttempts
	err = storage.GetJSON(t.store, AttemptsKey, &attempts)
	switch {
	case err == nil:
		t.attempts = max(attempts.Attempts, 0)
	case apperrors.Is(err, storage.ErrNotFound):
		t.attempts = 0
	default:
		t.logger.Err(err).Msg("[Tracker.load] ignoring unreadable attempts record")
		t.attempts = 0
	}
}

func (t *Tracker) saveLocked() {
	if t.lockedSince != nil {
		err := storage.SetJSON(t.store, LockoutKey, persistedLockout{
			Timestamp: t.lockedSince.UnixMilli(),
			Attempts:  t.attempts,
		})
		if err != nil {
			t.logger.Err(err).Msg("[Tracker.save] persisting lockout")
		}
		_ = t.store.Delete(AttemptsKey)
		return
	}
	if err := storage.SetJSON(t.store, AttemptsKey, persistedAttempts{Attempts: t.attempts}); err != nil {
		t.logger.Err(err).Msg("[Tracker.save] persisting attempts")
	}
}
