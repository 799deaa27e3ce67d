package utils

import (
	"math"
	"time"
)

// Backoff computes the wait before a retry attempt (0-indexed).
type Backoff interface {
	NextDelay(attempt int) time.Duration
}

// BackoffPolicy is a capped geometric backoff. Multiplier 1 gives a constant delay.
type BackoffPolicy struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     bool
}

// NextDelay returns Base*Multiplier^attempt capped at Max, optionally scaled
// by a random factor in [0.5, 1.5).
func (b BackoffPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	mult := b.Multiplier
	if mult <= 0 {
		mult = 2.0
	}
	delay := float64(b.Base) * math.Pow(mult, float64(attempt))
	if b.Max > 0 && delay > float64(b.Max) {
		delay = float64(b.Max)
	}
	if b.Jitter {
		delay *= Default().UniformFloat64(0.5, 1.5)
	}
	return time.Duration(delay)
}

// NewBackoff builds a policy by name: "constant" or "exponential" (the default).
func NewBackoff(kind string, base, max time.Duration) BackoffPolicy {
	if max == 0 {
		max = 30 * time.Second
	}
	if kind == "constant" {
		return BackoffPolicy{Base: base, Max: max, Multiplier: 1}
	}
	return BackoffPolicy{Base: base, Max: max, Multiplier: 2, Jitter: true}
}
