package coach

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTerminalStep is returned when validating the last step.
	ErrTerminalStep = errors.New("terminal step")
	// ErrInvalidStep is returned for a step outside 1..5.
	ErrInvalidStep = errors.New("invalid step")
)

// GateError explains why a step cannot be validated yet.
type GateError struct {
	Step    Step
	Message string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("step %d (%s) not ready: %s", int(e.Step), e.Step, e.Message)
}

type gate struct {
	next    Step
	ready   func(s State, st Stats) bool
	message string
}

// gates holds the linear transition table; StepReport has no entry.
var gates = map[Step]gate{
	StepFraming:   {next: StepData, ready: framingReady, message: "gate.framing"},
	StepData:      {next: StepScale, ready: dataReady, message: "gate.data"},
	StepScale:     {next: StepChecklist, ready: scaleReady, message: "gate.scale"},
	StepChecklist: {next: StepReport, ready: checklistReady, message: "gate.checklist"},
}

func framingReady(s State, _ Stats) bool {
	return filled(s.Goal) && filled(s.Variable)
}

func dataReady(s State, _ Stats) bool {
	return len(s.Categories) >= 2 && len(s.Categories) == len(s.Counts)
}

func scaleReady(s State, st Stats) bool {
	return filled(s.ScaleJustification) && s.Scale != nil && s.Scale.Top > st.Max
}

func checklistReady(s State, _ Stats) bool {
	for _, ok := range s.Checklist {
		if ok {
			return true
		}
	}
	return false
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}

// CanAdvance reports whether the guard leaving step holds for s and the
// analysis stats st. It reads its inputs only.
func CanAdvance(step Step, s State, st Stats) bool {
	g, ok := gates[step]
	if !ok {
		return false
	}
	return g.ready(s, st)
}

// NextStep returns the step reached when step is validated.
func NextStep(step Step) (Step, error) {
	if !step.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidStep, int(step))
	}
	g, ok := gates[step]
	if !ok {
		return 0, ErrTerminalStep
	}
	return g.next, nil
}

// Advance validates the current step of s. On success the returned state
// is on the next step with its hint counter cleared; otherwise s is
// returned as is with a *GateError, ErrTerminalStep or ErrInvalidStep.
func (c *Coach) Advance(s State) (State, error) {
	next, err := NextStep(s.Step)
	if err != nil {
		return s, err
	}
	g := gates[s.Step]
	if !g.ready(s, s.Analyze().Stats) {
		return s, &GateError{Step: s.Step, Message: c.loc.T(g.message)}
	}
	out := s.Clone()
	out.Step = next
	out.HintsGiven = 0
	return out, nil
}

// Reset discards all progress.
func Reset() State {
	return NewState()
}
