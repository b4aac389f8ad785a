package coach

// Topic selects which pedagogical hint is given.
type Topic string

const (
	TopicScale  Topic = "scale"
	TopicLabels Topic = "labels"
	TopicData   Topic = "data"
)

// MaxHintsPerStep caps the hints granted before the step is validated.
const MaxHintsPerStep = 1

// DefaultTopic is the hint topic offered by the hint button of each step.
func DefaultTopic(s Step) Topic {
	switch s {
	case StepFraming, StepData:
		return TopicData
	case StepScale:
		return TopicScale
	case StepChecklist:
		return TopicLabels
	default:
		return ""
	}
}

// GiveHint returns the topic hint and a state whose counter is one higher,
// or, once the per-step cap is reached, a nudge to try alone and the state
// unchanged. Unknown topics get the generic hint.
func (c *Coach) GiveHint(s State, topic Topic) (State, string) {
	if s.HintsGiven >= MaxHintsPerStep {
		return s, c.loc.T("hint.fallback")
	}
	next := s.Clone()
	next.HintsGiven++

	switch topic {
	case TopicScale, TopicLabels, TopicData:
		return next, c.loc.T("hint." + string(topic))
	default:
		return next, c.loc.T("hint.default")
	}
}
