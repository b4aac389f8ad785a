package coach

import (
	"strconv"
	"strings"
)

// BuildReport renders the self-check report of s as plain text. The line
// layout is fixed; only the wording follows the locale. Pairs are zipped,
// so a trailing category without a count is left out, as in the export.
func (c *Coach) BuildReport(s State) string {
	t := c.loc.T

	var step, top string
	if s.Scale != nil {
		step = strconv.Itoa(s.Scale.Step)
		top = strconv.Itoa(s.Scale.Top)
	}

	lines := []string{
		t("report.heading"),
		"",
		t("report.goal", s.Goal),
		t("report.variable", s.Variable, string(s.VarType)),
		"",
		t("report.categories"),
	}
	for i := 0; i < min(len(s.Categories), len(s.Counts)); i++ {
		lines = append(lines, t("report.row", s.Categories[i], s.Counts[i].String()))
	}

	lines = append(lines,
		"",
		t("report.scale", step, top),
		t("report.justification", s.ScaleJustification),
		"",
		t("report.checklist"),
	)
	for _, item := range ChecklistItems {
		status := t("report.review")
		if s.Checklist[item] {
			status = t("report.ok")
		}
		lines = append(lines, t("report.row", t("report.item."+string(item)), status))
	}

	lines = append(lines,
		"",
		t("report.improvement", s.Improvement),
		"",
		t("report.reflection", s.Reflection),
		"",
		t("report.reminder"),
	)
	return strings.Join(lines, "\n")
}

// ReportFilename is the name the report is offered for download under.
func (c *Coach) ReportFilename() string {
	return c.loc.T("report.filename")
}
