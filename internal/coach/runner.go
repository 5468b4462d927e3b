package coach

import (
	"context"
	"time"
)

// Phase is one segment of a breathing cycle.
type Phase string

const (
	PhaseInhale Phase = "inhale"
	PhaseHold   Phase = "hold"
	PhaseExhale Phase = "exhale"
)

// Step is one timed prompt emitted during a guided session.
type Step struct {
	Cycle   int
	Phase   Phase
	Seconds int
}

// Runner walks through an exercise cycle by cycle, emitting a Step at the
// start of each phase and pacing them in real time.
type Runner struct {
	exercise Exercise
	// tick is the length of one counted second. Tests shrink it.
	tick time.Duration
}

func NewRunner(ex Exercise) *Runner {
	return &Runner{exercise: ex, tick: time.Second}
}

// Run emits steps on the returned channel until the session completes or
// ctx is cancelled. The channel is closed either way.
func (r *Runner) Run(ctx context.Context) <-chan Step {
	ch := make(chan Step)
	go func() {
		defer close(ch)
		for cycle := 1; cycle <= r.exercise.Cycles; cycle++ {
			phases := []Step{
				{Cycle: cycle, Phase: PhaseInhale, Seconds: r.exercise.InhaleSeconds},
				{Cycle: cycle, Phase: PhaseHold, Seconds: r.exercise.HoldSeconds},
				{Cycle: cycle, Phase: PhaseExhale, Seconds: r.exercise.ExhaleSeconds},
			}
			for _, step := range phases {
				if step.Seconds <= 0 {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case ch <- step:
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Duration(step.Seconds) * r.tick):
				}
			}
		}
	}()
	return ch
}
