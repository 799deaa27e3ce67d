package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RandSource draws uniform samples for the metric sampler. It is safe for
// concurrent use; HTTP and gRPC requests share one source.
type RandSource struct {
	mu   sync.Mutex
	rng  *rand.Rand
	seed int64
}

// NewRandSource seeds a source. Zero means seed from the wall clock.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed reports the seed actually in use
func (r *RandSource) Seed() int64 {
	return r.seed
}

// UniformFloat64 returns a value in [min, max)
func (r *RandSource) UniformFloat64(min, max float64) float64 {
	r.mu.Lock()
	f := r.rng.Float64()
	r.mu.Unlock()
	return min + f*(max-min)
}

// FixedSource always lands at the same relative position inside a range.
// Fraction 0 yields min, 0.5 the midpoint; values are not clamped.
type FixedSource struct {
	Fraction float64
}

func (f FixedSource) UniformFloat64(min, max float64) float64 {
	return min + f.Fraction*(max-min)
}

var (
	defaultMu   sync.RWMutex
	defaultRand = NewRandSource(0)
)

// SetSeed replaces the process-wide source with one seeded by seed
func SetSeed(seed int64) {
	src := NewRandSource(seed)
	defaultMu.Lock()
	defaultRand = src
	defaultMu.Unlock()
}

// Default returns the process-wide source
func Default() *RandSource {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultRand
}
