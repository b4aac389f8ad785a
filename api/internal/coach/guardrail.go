package coach

import "strings"

// bannedPhrases are requests for the tool to draw the chart or write
// plotting code. Matching is case-insensitive on substrings.
var bannedPhrases = []string{
	"plot",
	"trace the chart",
	"draw the chart",
	"make the chart",
	"give me the code",
	"full code",
	"matplotlib",
	"ggplot",
	"do it for me",
	"fais le graphique",
	"trace le graphique",
	"tracer",
	"donne le code",
	"code complet",
	"fais-le à ma place",
}

// BannedPhrases returns a copy of the built-in banned set.
func BannedPhrases() []string {
	return append([]string(nil), bannedPhrases...)
}

func violates(phrases []string, text string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// CheckGuardrail returns the refusal message and true when text asks for
// the chart or plotting code. It has no side effects.
func (c *Coach) CheckGuardrail(text string) (string, bool) {
	if !violates(c.banned, text) {
		return "", false
	}
	return c.loc.T("guardrail.refusal"), true
}
