// Package timeutil provides a testable abstraction over wall time and
// one-shot timers.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides the time operations the form needs.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for d to elapse and then calls f in its own goroutine
	// (or, for MockClock, synchronously from Advance).
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable one-shot timer.
type Timer interface {
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer, false if it had already fired or been stopped.
	Stop() bool
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*MockTimer
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &MockTimer{
		deadline: c.now.Add(d),
		f:        f,
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d and runs the callbacks of every timer
// whose deadline has been reached, in registration order.
// Callbacks run on the caller's goroutine after the clock lock is released.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var due []*MockTimer
	pending := c.timers[:0]
	for _, t := range c.timers {
		if t.claim(now) {
			due = append(due, t)
			continue
		}
		if t.active() {
			pending = append(pending, t)
		}
	}
	c.timers = pending
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *MockClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if t.active() {
			n++
		}
	}
	return n
}

// MockTimer is a timer created by MockClock.
type MockTimer struct {
	mu       sync.Mutex
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func (t *MockTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

func (t *MockTimer) active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.stopped && !t.fired
}

// claim marks the timer fired if it is due at now.
func (t *MockTimer) claim(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	if now.Before(t.deadline) {
		return false
	}
	t.fired = true
	return true
}
