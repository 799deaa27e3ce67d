package utils

import "time"

// Clock abstracts waiting so narration pacing can be driven without sleeping in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is backed by the time package
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// InstantClock fires every wait immediately and records the requested delays.
// It is not safe for concurrent use.
type InstantClock struct {
	Start  time.Time
	Waits  []time.Duration
	offset time.Duration
}

// Now returns Start advanced by the sum of all waits so far
func (c *InstantClock) Now() time.Time {
	return c.Start.Add(c.offset)
}

// After records d and returns an already-fired channel
func (c *InstantClock) After(d time.Duration) <-chan time.Time {
	c.Waits = append(c.Waits, d)
	c.offset += d
	ch := make(chan time.Time, 1)
	ch <- c.Start.Add(c.offset)
	return ch
}

// MsToDuration converts milliseconds to time.Duration
func MsToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
