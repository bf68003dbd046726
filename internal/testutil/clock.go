package testutil

import (
	"sync"
	"time"
)

// StepClock is a deterministic clock for tests. Each call to Now returns
// the start time advanced by one more step.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewStepClock creates a clock starting at 2024-01-01T00:00:00Z and
// advancing one second per call.
//
// The first call to Now() returns the start time.
func NewStepClock() *StepClock {
	return &StepClock{
		start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		step:  time.Second,
	}
}

// Now returns the next time.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Reset rewinds the clock to its start time.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}

// SequentialIDs generates build ids "build-0001", "build-0002", ...
//
// Thread-safety: safe for concurrent use.
type SequentialIDs struct {
	mu sync.Mutex
	n  int
}

// Next returns the next id.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return buildID(g.n)
}
