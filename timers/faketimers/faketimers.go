// Package faketimers is a virtual clock scheduler for tests. Time only moves
// when Advance is called and due callbacks run synchronously on the caller.
package faketimers

import (
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/timers"
)

var _ timers.Scheduler = (*Scheduler)(nil)

type Scheduler struct {
	mu     sync.Mutex
	now    time.Time
	nextID int
	timers map[int]*timer
	fired  []time.Time
}

type timer struct {
	s   *Scheduler
	id  int
	due time.Time
	f   func()
}

func New(start time.Time) *Scheduler {
	return &Scheduler{now: start, timers: make(map[int]*timer)}
}

func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) timers.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &timer{s: s, id: s.nextID, due: s.now.Add(d), f: f}
	s.timers[t.id] = t
	return t
}

// Stop reports whether the timer was still pending
func (t *timer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	if _, ok := t.s.timers[t.id]; !ok {
		return false
	}
	delete(t.s.timers, t.id)
	return true
}

// Advance moves the clock forward by d, running every callback that falls due
// in deadline order. Callbacks may schedule or stop other timers.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		next := s.nextDueLocked(target)
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		delete(s.timers, next.id)
		s.now = next.due
		s.fired = append(s.fired, next.due)
		s.mu.Unlock()

		next.f()
	}
}

// Pending returns the deadlines of timers that have not fired or been stopped.
func (s *Scheduler) Pending() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]time.Time, 0, len(s.timers))
	for _, t := range s.timers {
		due = append(due, t.due)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Before(due[j]) })
	return due
}

// Fired returns the deadlines of every callback run so far
func (s *Scheduler) Fired() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.fired...)
}

func (s *Scheduler) nextDueLocked(target time.Time) *timer {
	var next *timer
	for _, t := range s.timers {
		if t.due.After(target) {
			continue
		}
		if next == nil || t.due.Before(next.due) || (t.due.Equal(next.due) && t.id < next.id) {
			next = t
		}
	}
	return next
}
