package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barchart-coach/api/internal/coach"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyzeCSV(t *testing.T) {
	out, err := run(t, "category,count\nApple,12\nBanana, 7\nCherry,3\n", "analyze", "-")
	require.NoError(t, err)
	assert.Equal(t, "Data look consistent at first glance.\n"+
		"Max count detected: 12 · Suggested step: 2 · Suggested rounded top: 14\n", out)
}

func TestAnalyzeReportsIssues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fruits.csv")
	require.NoError(t, os.WriteFile(path, []byte("Apple,3\napple,x\n"), 0o644))

	out, err := run(t, "", "analyze", path, "--header=false")
	require.NoError(t, err)
	assert.Contains(t, out, "• Duplicate categories")
	assert.Contains(t, out, "• Non-integer counts")
}

func TestAnalyzeJSON(t *testing.T) {
	out, err := run(t, "Apple,12\nBanana,7\n", "analyze", "-", "--header=false", "--json")
	require.NoError(t, err)

	var got analyzeOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"Apple", "Banana"}, got.Categories)
	assert.Equal(t, 19, got.Stats.Total)
	assert.Empty(t, got.Issues)
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := run(t, "", "analyze", filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}

func TestScale(t *testing.T) {
	out, err := run(t, "", "scale", "12")
	require.NoError(t, err)
	assert.Equal(t, "Max count detected: 12 · Suggested step: 2 · Suggested rounded top: 14\n", out)

	out, err = run(t, "", "scale", "12", "--lang", "fr")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Effectif max détecté : 12"))

	_, err = run(t, "", "scale", "twelve")
	assert.Error(t, err)

	_, err = run(t, "", "scale", "9223372036854775807")
	assert.Error(t, err)

	out, err = run(t, "", "scale", "--", "-3")
	require.NoError(t, err)
	assert.Equal(t, "Max count detected: -3 · Suggested step: 1 · Suggested rounded top: 10\n", out)
}

func TestGuardrail(t *testing.T) {
	out, err := run(t, "", "guardrail", "what", "is", "a", "category?")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	out, err = run(t, "", "guardrail", "please draw the chart")
	assert.ErrorIs(t, err, errGuardrail)
	assert.Contains(t, out, "I can't produce the chart")

	_, err = run(t, "", "guardrail", "--ban", "spreadsheet magic", "use spreadsheet magic")
	assert.ErrorIs(t, err, errGuardrail)
}

const stateYAML = `step: 5
goal: Compare favourite fruits
variable: Favourite fruit
var_type: qualitative
categories: [Apple, Banana]
counts: [12, 7]
scale_choice:
  step: 2
  top: 14
scale_justification: Seven marks of 2.
checklist:
  title: true
improvement: Add the source.
reflection: Apples win.
`

func TestReportFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(stateYAML), 0o644))

	out, err := run(t, "", "report", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Study question: Compare favourite fruits")
	assert.Contains(t, out, "- Apple : 12")
	assert.Contains(t, out, "- Title : OK")
	assert.Contains(t, out, "Final reflection: Apples win.")

	st, err := loadState(path)
	require.NoError(t, err)
	assert.Equal(t, coach.StepReport, st.Step)
	assert.Equal(t, []coach.RawCount{"12", "7"}, st.Counts)
}

func TestReportFromJSONToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"step":5,"goal":"Q","categories":["A"],"counts":[1]}`), 0o644))
	dest := filepath.Join(dir, "report.txt")

	out, err := run(t, "", "report", path, "--out", dest)
	require.NoError(t, err)
	assert.Empty(t, out)

	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Study question: Q")
	assert.Contains(t, string(body), "- A : 1")
}

func TestReportRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.txt")
	require.NoError(t, os.WriteFile(path, []byte("step: 1"), 0o644))
	_, err := run(t, "", "report", path)
	assert.Error(t, err)
}
