// Package testutil holds deterministic stand-ins for the clocks and id
// generators that production code injects. The same scenario run twice with
// the same helpers produces byte-identical output, which is what the golden
// tests compare.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// TickingClock is a thread-safe wall clock that advances by a fixed step on
// every read, so consecutive writes get distinct, ordered timestamps without
// touching the real clock.
type TickingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewTickingClock creates a clock starting at start. Each Now() call
// returns the current value, then advances by step.
func NewTickingClock(start time.Time, step time.Duration) *TickingClock {
	return &TickingClock{now: start, step: step}
}

// Now returns the clock's current time and advances it.
func (c *TickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Set repositions the clock. The next Now() returns t.
func (c *TickingClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// SequentialIDs generates "prefix-001", "prefix-002", ... in order.
// Thread-safe.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator with the given prefix.
func NewSequentialIDs(prefix string) *SequentialIDs {
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next id in the sequence.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%03d", g.prefix, g.n)
}
