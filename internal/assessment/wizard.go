package assessment

import (
	"errors"
	"fmt"
)

// ErrStepIncomplete is matched by errors.Is against the step gate's blocked
// signal.
var ErrStepIncomplete = errors.New("step incomplete")

// IncompleteStepError reports which required questions are still unanswered
// on the blocked step.
type IncompleteStepError struct {
	Step    int
	Missing []string
}

func (e *IncompleteStepError) Error() string {
	return fmt.Sprintf("step %d incomplete: %d required questions unanswered", e.Step, len(e.Missing))
}

func (e *IncompleteStepError) Is(target error) bool { return target == ErrStepIncomplete }

// StepGate is the wizard navigation state machine: an integer step index
// over the definition's steps, plus a terminal completed flag.
type StepGate struct {
	def       *Definition
	current   int
	completed bool
}

func NewStepGate(def *Definition) *StepGate { return &StepGate{def: def} }

// ResumeStepGate restores the gate at a persisted step index. Out-of-range
// indexes are clamped.
func ResumeStepGate(def *Definition, step int, completed bool) *StepGate {
	if step < 0 {
		step = 0
	}
	if max := len(def.Steps) - 1; step > max {
		step = max
	}
	return &StepGate{def: def, current: step, completed: completed}
}

func (g *StepGate) Current() int    { return g.current }
func (g *StepGate) Completed() bool { return g.completed }

// MissingRequired lists the current step's required questions with no answer
// yet, in declaration order.
func (g *StepGate) MissingRequired(sc *Scorecard) []string {
	var missing []string
	for _, id := range g.def.Steps[g.current].Required {
		if !sc.Answered(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

// Advance moves to the next step if the current step's required questions are
// all answered. A blocked advance leaves the step unchanged and returns an
// *IncompleteStepError. Advancing from the last step marks the gate
// completed.
func (g *StepGate) Advance(sc *Scorecard) error {
	if g.completed {
		return nil
	}
	if missing := g.MissingRequired(sc); len(missing) > 0 {
		return &IncompleteStepError{Step: g.current, Missing: missing}
	}
	if g.current == len(g.def.Steps)-1 {
		g.completed = true
		return nil
	}
	g.current++
	return nil
}

// Retreat steps back without validation. It never erases answers and is a
// no-op on the first step.
func (g *StepGate) Retreat() {
	if g.current > 0 {
		g.current--
	}
	g.completed = false
}
