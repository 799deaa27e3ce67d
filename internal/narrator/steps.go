package narrator

import (
	"context"
	"iter"
	"time"

	"github.com/GoSim-25-26J-441/wireless-lab/pkg/utils"
)

// Step is one narrated line and the pause that precedes it
type Step struct {
	Index int           `json:"index"` // 0-based
	Total int           `json:"total"`
	Line  string        `json:"line"`
	Delay time.Duration `json:"delay"`
}

// Last reports whether s is the final line of its procedure
func (s Step) Last() bool {
	return s.Index == s.Total-1
}

// Steps returns the lines of p as a lazy sequence. The first line has no
// delay, every later line is preceded by pause. Each range over the result
// starts again from the first line; stopping the range stops the sequence.
func Steps(p Procedure, pause time.Duration) iter.Seq[Step] {
	lines := p.Lines
	if pause < 0 {
		pause = 0
	}
	return func(yield func(Step) bool) {
		for i, line := range lines {
			delay := pause
			if i == 0 {
				delay = 0
			}
			if !yield(Step{Index: i, Total: len(lines), Line: line, Delay: delay}) {
				return
			}
		}
	}
}

// Play drives steps in the caller's goroutine: it waits each step's delay on
// clock, then hands the step to emit. It returns ctx.Err() if the context is
// cancelled while waiting, or the first error from emit.
func Play(ctx context.Context, steps iter.Seq[Step], clock utils.Clock, emit func(Step) error) error {
	if clock == nil {
		clock = utils.RealClock{}
	}
	for step := range steps {
		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock.After(step.Delay):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(step); err != nil {
			return err
		}
	}
	return nil
}
