// coachctl runs the coach's checks from the command line: data analysis,
// scale suggestions, guardrail screening and report rendering.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"barchart-coach/api/internal/coach"
	"barchart-coach/api/internal/i18n"
)

type cli struct {
	lang     string
	verbose  bool
	jsonOut  bool
	outPath  string
	header   bool
	banned   []string
	logger   *zap.Logger
	coachFor func() *coach.Coach
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	c.coachFor = func() *coach.Coach {
		return coach.New(i18n.For(c.lang), coach.WithExtraBannedPhrases(c.banned...))
	}

	root := &cobra.Command{
		Use:   "coachctl",
		Short: "Bar chart coach checks from the command line",
		Long: `coachctl runs the same rules as the Telegram bot and the HTTP API.

Examples:
  coachctl analyze survey.csv
  coachctl scale 37
  coachctl guardrail "draw the chart for me"
  coachctl report session.yaml --out report.txt`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			config.OutputPaths = []string{"stderr"}
			if c.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			} else {
				config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			}
			var err error
			c.logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.lang, "lang", "l", i18n.BaseLocale, "Message locale (en-US, fr-FR)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print machine-readable JSON")

	analyze := &cobra.Command{
		Use:   "analyze [file.csv]",
		Short: "Check categories and counts from a CSV file",
		Long: `Reads "category,count" rows. The first row is a header unless
--header=false. Use "-" to read standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: c.runAnalyze,
	}
	analyze.Flags().BoolVar(&c.header, "header", true, "First CSV row is a header")

	scale := &cobra.Command{
		Use:   "scale [max-count]",
		Short: "Suggest a graduation step and a rounded top for the vertical axis",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runScale,
	}

	guardrail := &cobra.Command{
		Use:   "guardrail [text]",
		Short: "Check whether a message asks for the finished chart",
		Args:  cobra.MinimumNArgs(1),
		RunE:  c.runGuardrail,
	}
	guardrail.Flags().StringSliceVar(&c.banned, "ban", nil, "Extra banned phrase (repeatable)")

	report := &cobra.Command{
		Use:   "report [state.yaml|state.json]",
		Short: "Render the self-check report for a saved session state",
		Args:  cobra.ExactArgs(1),
		RunE:  c.runReport,
	}
	report.Flags().StringVarP(&c.outPath, "out", "o", "", "Write the report to this file instead of stdout")

	root.AddCommand(analyze, scale, guardrail, report)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
