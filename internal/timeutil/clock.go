// Package timeutil provides a testable wall clock and the calendar
// arithmetic used to turn incident dates into day offsets.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides an abstraction over wall-clock reads for testability.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the duration since t.
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock is a manually driven Clock for tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock returns a MockClock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mock's current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Since returns Now() - t.
func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}
