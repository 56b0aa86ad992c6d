package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time for ManualClock: 2025-03-01 10:30 in
// Brunei (UTC+8). Chosen so composed messages carry a stable, readable
// order time in golden files.
var Epoch = time.Date(2025, time.March, 1, 10, 30, 0, 0, time.FixedZone("BNT", 8*60*60))

// ManualClock provides a thread-safe wall clock that only moves when told.
//
// Unlike clock.Real, ManualClock returns the same instant on every Now()
// call until Advance is called. This keeps composed messages, order IDs,
// and sync event timestamps identical across test runs.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu      sync.Mutex
	start   time.Time
	current time.Time
}

// NewManualClock creates a clock stopped at start. A zero start uses Epoch.
func NewManualClock(start time.Time) *ManualClock {
	if start.IsZero() {
		start = Epoch
	}
	return &ManualClock{start: start, current: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d. Negative durations are ignored so
// the clock never runs backwards.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// Reset returns the clock to its start time.
//
// Used for test reuse. After Reset(), Now() returns the construction time.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.start
}
