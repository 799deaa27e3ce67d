package narrator

import (
	"context"
	"errors"
	"iter"
	"sync"

	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

var ErrAlreadyStarted = errors.New("playback already started")

// State is the lifecycle of one playback
type State string

const (
	StateNotStarted State = "not_started"
	StatePlaying    State = "playing"
	StateDone       State = "done"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

// Playback plays a step sequence once: not_started -> playing -> done,
// or cancelled if its context ends first.
type Playback struct {
	steps iter.Seq[Step]
	clock utils.Clock

	mu      sync.RWMutex
	state   State
	emitted int
}

// NewPlayback prepares a playback. A nil clock uses real time.
func NewPlayback(steps iter.Seq[Step], clock utils.Clock) *Playback {
	return &Playback{steps: steps, clock: clock, state: StateNotStarted}
}

// State returns the current state
func (p *Playback) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Emitted returns how many lines have been handed to emit so far
func (p *Playback) Emitted() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.emitted
}

func (p *Playback) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Run plays the sequence to completion, blocking the caller. It may be called once.
func (p *Playback) Run(ctx context.Context, emit func(Step) error) error {
	p.mu.Lock()
	if p.state != StateNotStarted {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.state = StatePlaying
	p.mu.Unlock()

	err := Play(ctx, p.steps, p.clock, func(s Step) error {
		if err := emit(s); err != nil {
			return err
		}
		p.mu.Lock()
		p.emitted++
		p.mu.Unlock()
		return nil
	})
	// a failed emit ends playback the same way a cancelled context does
	if err != nil {
		p.setState(StateCancelled)
		return err
	}
	p.setState(StateDone)
	return nil
}
