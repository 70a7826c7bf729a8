package selector

import "sync/atomic"

// Tick is a point in logical time. The zero Tick means "never".
type Tick int64

// Clock is the logical clock owned by a Graph.
//
// It starts at 1 and only moves forward, one step per observed snapshot
// transition. Now is an atomic load so the current time can be sampled from
// other goroutines (metrics, HTTP handlers); Advance is only called from the
// graph's own goroutine.
type Clock struct {
	now atomic.Int64
}

// NewClock creates a clock at tick 1.
func NewClock() *Clock {
	c := &Clock{}
	c.now.Store(1)
	return c
}

// Advance moves the clock forward by one and returns the new tick.
func (c *Clock) Advance() Tick {
	return Tick(c.now.Add(1))
}

// Now returns the current tick without advancing.
func (c *Clock) Now() Tick {
	return Tick(c.now.Load())
}
