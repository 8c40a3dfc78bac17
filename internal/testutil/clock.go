package testutil

import (
	"sync"
	"time"
)

// Clock is a scripted epoch-millisecond time source for deterministic tests.
//
// Inject Now into clock.NewAt and drive time explicitly; the same script
// produces byte-identical documents on every run. Unlike the production
// source, Clock only moves when told to.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu  sync.Mutex
	now int64
}

// NewClock creates a scripted clock starting at start epoch milliseconds.
func NewClock(start int64) *Clock {
	return &Clock{now: start}
}

// Now returns the scripted time. Pass this method as the time source:
//
//	tc := testutil.NewClock(1_000)
//	c := clock.NewAt("client-test", tc.Now)
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the scripted time forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d.Milliseconds()
}

// AdvanceMs moves the scripted time forward by ms milliseconds.
func (c *Clock) AdvanceMs(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
}

// Set jumps the scripted time to ms. Jumping backward is allowed; the
// write-metadata clock is expected to compensate.
func (c *Clock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ms
}
