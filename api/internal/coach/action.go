package coach

import (
	"errors"
	"strconv"
	"strings"
)

// Action is a student interaction fed to Coach.Apply.
type Action interface {
	// owner is the step whose form holds the action; zero means any step.
	owner() Step
}

// SetFraming fills the study question and the variable (step 1).
type SetFraming struct {
	Goal     string `json:"goal"`
	Variable string `json:"variable"`
	VarType  string `json:"varType"`
}

// SetData replaces the categories and counts (step 2).
type SetData struct {
	Categories []string   `json:"categories"`
	Counts     []RawCount `json:"counts"`
}

// SetScale records the axis graduation and its justification (step 3).
type SetScale struct {
	Step          int    `json:"step"`
	Top           int    `json:"top"`
	Justification string `json:"justification"`
}

// SetChecklist ticks or unticks rubric items and states the priority
// improvement (step 4). Items not listed keep their value.
type SetChecklist struct {
	Items       map[string]bool `json:"items"`
	Improvement string          `json:"improvement"`
}

// SetReflection records the final reflection (step 5).
type SetReflection struct {
	Text string `json:"reflection"`
}

// AskQuestion is a free question to the assistant.
type AskQuestion struct {
	Text string `json:"text"`
}

// RequestHint asks for a hint; an empty topic uses the step's default.
type RequestHint struct {
	Topic Topic `json:"topic"`
}

// Validate asks to leave the current step.
type Validate struct{}

// Restart discards the session and returns to step 1.
type Restart struct{}

func (SetFraming) owner() Step    { return StepFraming }
func (SetData) owner() Step       { return StepData }
func (SetScale) owner() Step      { return StepScale }
func (SetChecklist) owner() Step  { return StepChecklist }
func (SetReflection) owner() Step { return StepReport }
func (AskQuestion) owner() Step   { return 0 }
func (RequestHint) owner() Step   { return 0 }
func (Validate) owner() Step      { return 0 }
func (Restart) owner() Step       { return 0 }

// OutcomeKind classifies the answer to an action.
type OutcomeKind string

const (
	OutcomeSaved    OutcomeKind = "saved"
	OutcomeInfo     OutcomeKind = "info"
	OutcomeRefused  OutcomeKind = "refused"
	OutcomeHint     OutcomeKind = "hint"
	OutcomeRejected OutcomeKind = "rejected"
	OutcomeAdvanced OutcomeKind = "advanced"
	OutcomeReset    OutcomeKind = "reset"
)

// Outcome is what the host shows the student after an action.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	Message  string      `json:"message"`
	Issues   []string    `json:"issues,omitempty"`
	Analysis *Analysis   `json:"analysis,omitempty"`
}

// Apply runs one action against s and returns the next state with the
// message for the student. Rejected and refused actions return s as is.
// Free text is screened by the guardrail before it is stored or answered.
func (c *Coach) Apply(s State, a Action) (State, Outcome) {
	if a == nil {
		return s, Outcome{Kind: OutcomeRejected}
	}
	if owner := a.owner(); owner != 0 && owner != s.Step {
		return s, c.rejected("action.wrong_step", strconv.Itoa(int(owner)), strconv.Itoa(int(s.Step)))
	}

	switch a := a.(type) {
	case SetFraming:
		if out, refused := c.screen(a.Goal, a.Variable); refused {
			return s, out
		}
		vt, err := ParseVarType(strings.TrimSpace(a.VarType))
		if err != nil {
			return s, c.rejected("action.invalid_var_type")
		}
		next := s.Clone()
		next.Goal = a.Goal
		next.Variable = a.Variable
		next.VarType = vt
		return next, c.saved()

	case SetData:
		if out, refused := c.screen(a.Categories...); refused {
			return s, out
		}
		next := s.Clone()
		next.Categories = make([]string, 0, len(a.Categories))
		for _, cat := range a.Categories {
			next.Categories = append(next.Categories, strings.TrimSpace(cat))
		}
		next.Counts = make([]RawCount, 0, len(a.Counts))
		for _, n := range a.Counts {
			next.Counts = append(next.Counts, n.Normalize())
		}
		return next, c.dataOutcome(next.Analyze())

	case SetScale:
		if out, refused := c.screen(a.Justification); refused {
			return s, out
		}
		if a.Step < 1 {
			return s, c.rejected("action.invalid_scale_step")
		}
		next := s.Clone()
		next.Scale = &ScaleChoice{Step: a.Step, Top: a.Top}
		next.ScaleJustification = a.Justification
		return next, c.saved()

	case SetChecklist:
		if out, refused := c.screen(a.Improvement); refused {
			return s, out
		}
		next := s.Clone()
		for key, ok := range a.Items {
			item, known := ParseChecklistItem(key)
			if !known {
				return s, c.rejected("action.invalid_checklist_item", key)
			}
			next.Checklist[item] = ok
		}
		next.Improvement = a.Improvement
		return next, c.saved()

	case SetReflection:
		if out, refused := c.screen(a.Text); refused {
			return s, out
		}
		next := s.Clone()
		next.Reflection = a.Text
		return next, c.saved()

	case AskQuestion:
		if out, refused := c.screen(a.Text); refused {
			return s, out
		}
		return s, Outcome{Kind: OutcomeInfo, Message: c.loc.T("question.nudge." + s.Step.String())}

	case RequestHint:
		topic := a.Topic
		if topic == "" {
			topic = DefaultTopic(s.Step)
		}
		next, msg := c.GiveHint(s, topic)
		return next, Outcome{Kind: OutcomeHint, Message: msg}

	case Validate:
		next, err := c.Advance(s)
		var gerr *GateError
		switch {
		case err == nil:
			return next, Outcome{Kind: OutcomeAdvanced, Message: c.loc.T("action.advanced")}
		case errors.As(err, &gerr):
			return s, Outcome{Kind: OutcomeRejected, Message: gerr.Message}
		case errors.Is(err, ErrTerminalStep):
			return s, c.rejected("gate.terminal")
		default:
			return s, Outcome{Kind: OutcomeRejected, Message: err.Error()}
		}

	case Restart:
		return NewState(), Outcome{Kind: OutcomeReset, Message: c.loc.T("action.reset")}
	}

	return s, Outcome{Kind: OutcomeRejected}
}

// screen runs the guardrail over each text in turn.
func (c *Coach) screen(texts ...string) (Outcome, bool) {
	for _, t := range texts {
		if msg, bad := c.CheckGuardrail(t); bad {
			return Outcome{Kind: OutcomeRefused, Message: msg}, true
		}
	}
	return Outcome{}, false
}

func (c *Coach) saved() Outcome {
	return Outcome{Kind: OutcomeSaved, Message: c.loc.T("action.saved")}
}

func (c *Coach) rejected(key string, args ...any) Outcome {
	return Outcome{Kind: OutcomeRejected, Message: c.loc.T(key, args...)}
}

func (c *Coach) dataOutcome(an Analysis) Outcome {
	out := Outcome{Kind: OutcomeSaved, Analysis: &an, Issues: c.IssueTexts(an.Issues)}
	if len(out.Issues) == 0 {
		out.Message = c.loc.T("data.consistent")
		return out
	}
	bullets := make([]string, 0, len(out.Issues))
	for _, is := range out.Issues {
		bullets = append(bullets, "• "+is)
	}
	out.Message = strings.Join(bullets, "\n")
	return out
}
