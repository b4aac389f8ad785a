// Package coach is the rules engine of the bar-chart wizard: it checks
// free text against the guardrail, analyzes categorical data, suggests an
// axis scale, dispenses hints, gates step changes and assembles the final
// report. It never draws a chart.
//
// Apart from the hint counter and the step, which live in the State value
// passed in and returned, every function here is pure.
package coach

import (
	"strconv"
	"strings"

	"barchart-coach/api/internal/i18n"
)

// Coach binds the engine to a locale and a banned-phrase set.
type Coach struct {
	loc    i18n.Localizer
	banned []string
}

// Option configures a Coach.
type Option func(*Coach)

// WithExtraBannedPhrases adds operator-defined phrases to the guardrail.
func WithExtraBannedPhrases(phrases ...string) Option {
	return func(c *Coach) {
		for _, p := range phrases {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				c.banned = append(c.banned, p)
			}
		}
	}
}

// New returns a Coach speaking the locale of loc.
func New(loc i18n.Localizer, opts ...Option) *Coach {
	c := &Coach{loc: loc, banned: BannedPhrases()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Locale returns the locale identifier messages are produced in.
func (c *Coach) Locale() string {
	return c.loc.Locale()
}

// T exposes the catalog to hosts rendering the wizard around the engine.
func (c *Coach) T(key string, args ...any) string {
	return c.loc.T(key, args...)
}

// StepTitle is the localized heading of step s.
func (c *Coach) StepTitle(s Step) string {
	return c.loc.T("step.title." + strconv.Itoa(int(s)))
}

// ChecklistLabel is the rubric wording shown next to a checklist box.
func (c *Coach) ChecklistLabel(item ChecklistItem) string {
	return c.loc.T("checklist." + string(item))
}
