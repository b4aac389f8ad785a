package coach

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Step is one stage of the five-step wizard.
type Step int

const (
	StepFraming Step = iota + 1
	StepData
	StepScale
	StepChecklist
	StepReport
)

// StepCount is the number of wizard steps.
const StepCount = int(StepReport)

func (s Step) String() string {
	switch s {
	case StepFraming:
		return "framing"
	case StepData:
		return "data"
	case StepScale:
		return "scale"
	case StepChecklist:
		return "checklist"
	case StepReport:
		return "report"
	default:
		return "step(" + strconv.Itoa(int(s)) + ")"
	}
}

// Valid reports whether s is one of the five steps.
func (s Step) Valid() bool {
	return s >= StepFraming && s <= StepReport
}

// VarType is the nature of the studied variable.
type VarType string

const (
	VarQualitative          VarType = "qualitative"
	VarQuantitativeDiscrete VarType = "quantitative_discrete"
)

// ParseVarType accepts the two known natures; empty input means qualitative.
func ParseVarType(s string) (VarType, error) {
	switch VarType(s) {
	case "", VarQualitative:
		return VarQualitative, nil
	case VarQuantitativeDiscrete:
		return VarQuantitativeDiscrete, nil
	default:
		return "", fmt.Errorf("unknown variable nature %q", s)
	}
}

// ChecklistItem is a key of the self-check rubric.
type ChecklistItem string

const (
	CheckTitle  ChecklistItem = "title"
	CheckX      ChecklistItem = "x"
	CheckY      ChecklistItem = "y"
	CheckBars   ChecklistItem = "bars"
	CheckScale  ChecklistItem = "scale"
	CheckSource ChecklistItem = "source"
	CheckLegend ChecklistItem = "legend"
)

// ChecklistItems lists the rubric keys in report order.
var ChecklistItems = []ChecklistItem{
	CheckTitle, CheckX, CheckY, CheckBars, CheckScale, CheckSource, CheckLegend,
}

// ParseChecklistItem validates a rubric key.
func ParseChecklistItem(s string) (ChecklistItem, bool) {
	item := ChecklistItem(s)
	return item, slices.Contains(ChecklistItems, item)
}

// ScaleChoice is the vertical axis chosen by the student.
type ScaleChoice struct {
	Step int `json:"step" yaml:"step"`
	Top  int `json:"top" yaml:"top"`
}

// State is the progress of one student through the wizard. It is treated
// as a value: transitions return a new State and leave the input intact.
type State struct {
	Step               Step                   `json:"step" yaml:"step"`
	HintsGiven         int                    `json:"hintsGiven" yaml:"hints_given"`
	Goal               string                 `json:"goal" yaml:"goal"`
	Variable           string                 `json:"variable" yaml:"variable"`
	VarType            VarType                `json:"varType" yaml:"var_type"`
	Categories         []string               `json:"categories" yaml:"categories"`
	Counts             []RawCount             `json:"counts" yaml:"counts"`
	Scale              *ScaleChoice           `json:"scaleChoice,omitempty" yaml:"scale_choice,omitempty"`
	ScaleJustification string                 `json:"scaleJustification" yaml:"scale_justification"`
	Checklist          map[ChecklistItem]bool `json:"checklist" yaml:"checklist"`
	Improvement        string                 `json:"improvement" yaml:"improvement"`
	Reflection         string                 `json:"reflection" yaml:"reflection"`
}

// NewState returns the state of a fresh session.
func NewState() State {
	return State{
		Step:       StepFraming,
		VarType:    VarQualitative,
		Categories: []string{},
		Counts:     []RawCount{},
		Checklist:  map[ChecklistItem]bool{},
	}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Categories = slices.Clone(s.Categories)
	out.Counts = slices.Clone(s.Counts)
	out.Checklist = maps.Clone(s.Checklist)
	if out.Checklist == nil {
		out.Checklist = map[ChecklistItem]bool{}
	}
	if s.Scale != nil {
		sc := *s.Scale
		out.Scale = &sc
	}
	return out
}
