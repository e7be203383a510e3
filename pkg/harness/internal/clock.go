// Package internal provides timing utilities for the harness package.
package internal

import (
	"errors"
	"time"
)

// Clock is an interface for obtaining monotonic time.
// This abstraction allows for deterministic testing of time-dependent code.
type Clock interface {
	// Now returns the current time. Implementations must return
	// monotonically increasing time values.
	Now() time.Time
}

// MonotonicClock is a Clock implementation that uses the system's monotonic clock.
// In Go, time.Now() includes monotonic clock readings, making it safe for
// measuring elapsed time without wall-clock adjustments.
type MonotonicClock struct{}

// Now returns the current system time with monotonic clock reading.
func (MonotonicClock) Now() time.Time {
	return time.Now()
}

// MockClock is a Clock implementation for testing that allows manual control
// of time progression. It is not safe for concurrent use.
type MockClock struct {
	current time.Time
}

// NewMockClock creates a new MockClock initialized to the given time.
// If t is zero, it initializes to a reasonable default start time.
func NewMockClock(t time.Time) *MockClock {
	if t.IsZero() {
		// Start at a reasonable time to avoid edge cases with zero time
		t = time.Unix(1000000000, 0) // 2001-09-09
	}
	return &MockClock{current: t}
}

// Now returns the mock clock's current time.
func (m *MockClock) Now() time.Time {
	return m.current
}

// Advance moves the clock forward by the given duration.
func (m *MockClock) Advance(d time.Duration) {
	m.current = m.current.Add(d)
}

// ErrPollTimeout is returned by Poll when the budget elapses before the
// check reports completion.
var ErrPollTimeout = errors.New("poll timeout")

// Poll invokes check on a fixed interval until it reports done, returns an
// error, or the timeout budget elapses as measured against clock. It returns
// the elapsed time alongside the outcome so callers can report how long they
// actually waited.
//
// Poll sleeps between attempts rather than blocking on a single wait; the
// check is expected to observe all of its completion and failure channels on
// every call.
func Poll(clock Clock, interval, timeout time.Duration, check func() (bool, error)) (time.Duration, error) {
	start := clock.Now()
	for {
		done, err := check()
		elapsed := clock.Now().Sub(start)
		if err != nil {
			return elapsed, err
		}
		if done {
			return elapsed, nil
		}
		if elapsed >= timeout {
			return elapsed, ErrPollTimeout
		}
		time.Sleep(interval)
	}
}
