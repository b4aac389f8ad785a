package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"barchart-coach/api/internal/coach"
)

// errGuardrail makes the guardrail command exit non-zero on a violation.
var errGuardrail = errors.New("guardrail violated")

type analyzeOutput struct {
	Categories []string         `json:"categories"`
	Counts     []coach.RawCount `json:"counts"`
	coach.Analysis
	Messages []string `json:"messages"`
}

func (c *cli) runAnalyze(cmd *cobra.Command, args []string) error {
	in, closeFn, err := openInput(cmd, args[0])
	if err != nil {
		return err
	}
	defer closeFn()

	rows, err := readRows(in, c.header)
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	cats, counts := coach.SplitRows(rows)
	an := coach.AnalyzeData(cats, counts)
	co := c.coachFor()
	msgs := co.IssueTexts(an.Issues)
	c.logger.Debug("analyzed", zap.Int("rows", len(cats)), zap.Int("issues", len(an.Issues)))

	out := cmd.OutOrStdout()
	if c.jsonOut {
		return writeJSON(out, analyzeOutput{Categories: cats, Counts: counts, Analysis: an, Messages: msgs})
	}
	if len(msgs) == 0 {
		fmt.Fprintln(out, co.T("data.consistent"))
	}
	for _, m := range msgs {
		fmt.Fprintln(out, "• "+m)
	}
	fmt.Fprintln(out, scaleSummary(co, an.Stats))
	return nil
}

func (c *cli) runScale(cmd *cobra.Command, args []string) error {
	maxCount, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("max-count must be an integer: %w", err)
	}
	if maxCount > coach.MaxCount || maxCount < -coach.MaxCount {
		return fmt.Errorf("max-count must be within ±%d", coach.MaxCount)
	}
	step, top := coach.SuggestScale(maxCount)
	st := coach.Stats{Max: maxCount, SuggestedStep: step, RoundedTop: top}

	out := cmd.OutOrStdout()
	if c.jsonOut {
		return writeJSON(out, st)
	}
	fmt.Fprintln(out, scaleSummary(c.coachFor(), st))
	return nil
}

func (c *cli) runGuardrail(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	msg, violated := c.coachFor().CheckGuardrail(text)

	out := cmd.OutOrStdout()
	if c.jsonOut {
		if err := writeJSON(out, map[string]any{"violated": violated, "message": msg}); err != nil {
			return err
		}
	} else if violated {
		fmt.Fprintln(out, msg)
	} else {
		fmt.Fprintln(out, "ok")
	}
	if violated {
		cmd.SilenceErrors = true
		return errGuardrail
	}
	return nil
}

func (c *cli) runReport(cmd *cobra.Command, args []string) error {
	st, err := loadState(args[0])
	if err != nil {
		return err
	}
	co := c.coachFor()
	body := co.BuildReport(st)

	if c.outPath == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), body)
		return err
	}
	if err := os.WriteFile(c.outPath, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	c.logger.Info("report written", zap.String("path", c.outPath))
	return nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// readRows parses "category,count" records. Short records get an empty
// count. The first record is dropped when header is set.
func readRows(r io.Reader, header bool) ([]coach.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if header && len(records) > 0 {
		records = records[1:]
	}
	rows := make([]coach.Row, 0, len(records))
	for _, rec := range records {
		row := coach.Row{}
		if len(rec) > 0 {
			row.Category = rec[0]
		}
		if len(rec) > 1 {
			row.Count = coach.RawCount(strings.TrimSpace(rec[1]))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// loadState reads a session state saved as YAML or JSON, chosen by extension.
func loadState(path string) (coach.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return coach.State{}, err
	}
	st := coach.NewState()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &st)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &st)
	default:
		return coach.State{}, fmt.Errorf("unsupported state file %q: use .yaml or .json", path)
	}
	if err != nil {
		return coach.State{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return st, nil
}

func scaleSummary(co *coach.Coach, st coach.Stats) string {
	return co.T("scale.summary",
		strconv.Itoa(st.Max), strconv.Itoa(st.SuggestedStep), strconv.Itoa(st.RoundedTop))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
