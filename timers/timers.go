// Package timers owns the two session schedules: the idle timeout that ends
// an inactive session and the refresh that renews tokens shortly before it.
package timers

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// ScheduleState is the lifecycle of one schedule.
type ScheduleState int

const (
	Idle ScheduleState = iota
	Armed
	Fired
)

func (s ScheduleState) String() string {
	switch s {
	case Armed:
		return "armed"
	case Fired:
		return "fired"
	default:
		return "idle"
	}
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

func (realScheduler) Now() time.Time {
	return time.Now()
}

// Config is the subset of the session configuration the coordinator needs.
type Config interface {
	GetSessionTimeout() time.Duration
	GetRefreshThreshold() time.Duration
}

type Option func(*Coordinator)

func WithScheduler(s Scheduler) Option {
	return func(c *Coordinator) {
		c.scheduler = s
	}
}

// WithActivityCoalescing limits Activity to one re-arm per window, measured
// on the wall clock. Zero re-arms on every event.
func WithActivityCoalescing(window time.Duration) Option {
	return func(c *Coordinator) {
		c.coalesce = window
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

type schedule struct {
	timer Timer
	state ScheduleState
	due   time.Time
}

func (s *schedule) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state == Armed {
		s.state = Idle
	}
	s.due = time.Time{}
}

// Coordinator schedules the idle and refresh callbacks for one session.
// Arming always stops the previous timers first so at most one callback of
// each kind is ever pending.
type Coordinator struct {
	timeout   time.Duration
	threshold time.Duration
	coalesce  time.Duration
	scheduler Scheduler
	logger    zerolog.Logger

	mu         sync.Mutex
	generation uint64
	active     bool
	onIdle     func()
	onRefresh  func()
	idle       schedule
	refresh    schedule
	activity   *rate.Sometimes
}

func New(cfg Config, options ...Option) *Coordinator {
	c := &Coordinator{
		timeout:   cfg.GetSessionTimeout(),
		threshold: cfg.GetRefreshThreshold(),
		scheduler: realScheduler{},
		logger:    log.Logger,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Arm stops any pending timers and schedules onIdle after the session timeout
// and onRefresh after timeout minus the refresh threshold.
func (c *Coordinator) Arm(onIdle, onRefresh func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onIdle = onIdle
	c.onRefresh = onRefresh
	c.active = true
	if c.coalesce > 0 {
		c.activity = &rate.Sometimes{Interval: c.coalesce}
	}
	c.armLocked()
}

// Reset re-arms with the callbacks of the last Arm. It does nothing after
// Disarm or before the first Arm.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return
	}
	c.armLocked()
}

// Disarm stops both timers and returns both schedules to Idle.
func (c *Coordinator) Disarm() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.active = false
	c.onIdle = nil
	c.onRefresh = nil
	c.activity = nil
	c.idle.stop()
	c.refresh.stop()
	c.idle.state = Idle
	c.refresh.state = Idle
}

// Activity records a user activity event and pushes both deadlines back.
func (c *Coordinator) Activity() {
	c.mu.Lock()
	active, sometimes := c.active, c.activity
	c.mu.Unlock()

	if !active {
		return
	}
	if sometimes == nil {
		c.Reset()
		return
	}
	sometimes.Do(c.Reset)
}

func (c *Coordinator) IdleState() ScheduleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idle.state
}

func (c *Coordinator) RefreshState() ScheduleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh.state
}

// IdleDueAt is zero unless the idle timeout is armed
func (c *Coordinator) IdleDueAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idle.due
}

// RefreshDueAt is zero unless the refresh is armed
func (c *Coordinator) RefreshDueAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refresh.due
}

func (c *Coordinator) armLocked() {
	c.idle.stop()
	c.refresh.stop()
	c.generation++
	gen := c.generation

	now := c.scheduler.Now()

	c.idle.state = Armed
	c.idle.due = now.Add(c.timeout)
	c.idle.timer = c.scheduler.AfterFunc(c.timeout, func() { c.fire(gen, true) })

	// a non-positive threshold disables silent refresh
	if c.threshold > 0 {
		refreshAfter := max(c.timeout-c.threshold, 0)
		c.refresh.state = Armed
		c.refresh.due = now.Add(refreshAfter)
		c.refresh.timer = c.scheduler.AfterFunc(refreshAfter, func() { c.fire(gen, false) })
	}

	c.logger.Debug().Time("idle_at", c.idle.due).Time("refresh_at", c.refresh.due).Msg("session timers armed")
}

// fire runs a callback unless the schedule was re-armed or disarmed after
// the timer was created.
func (c *Coordinator) fire(gen uint64, idle bool) {
	c.mu.Lock()
	s, f := &c.refresh, c.onRefresh
	if idle {
		s, f = &c.idle, c.onIdle
	}
	if gen != c.generation || s.state != Armed {
		c.mu.Unlock()
		return
	}
	s.state = Fired
	s.timer = nil
	s.due = time.Time{}
	c.mu.Unlock()

	if f != nil {
		f()
	}
}
