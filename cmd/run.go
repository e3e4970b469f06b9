package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/KaramelBytes/echoloom-cli/internal/pipeline"
	"github.com/KaramelBytes/echoloom-cli/internal/settings"
	"github.com/spf13/cobra"
)

var (
	runStudy     string
	runSettings  string
	runOutput    string
	runFlatCSV   bool
	runNoSummary bool
	runWarnings  bool
)

const defaultOutput = "echoloom_output.xlsx"

var runCmd = &cobra.Command{
	Use:   "run [reports...]",
	Short: "Extract, merge, reshape and analyze reports into one workbook",
	Long: `Runs the full pipeline over the given report exports, or over the reports of
a study (-p). Without a settings source only the vertical sheet is written;
with all settings tables present the horizontal, split, graphs, stats and
pairwise sheets are added.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := pipeline.Input{}
		var settingsPath string
		if len(args) > 0 {
			files, err := expandInputs(args)
			if err != nil {
				return err
			}
			in.Reports = files
		}
		if runStudy != "" || len(args) == 0 {
			s, err := loadStudy(runStudy)
			if err != nil {
				return err
			}
			if len(in.Reports) == 0 {
				in.Reports = s.ReportPaths()
			}
			settingsPath = s.SettingsPath
			in.Output = s.Output()
		}
		if len(in.Reports) == 0 {
			return fmt.Errorf("no reports to process")
		}
		if runSettings != "" {
			settingsPath = runSettings
		}
		if runOutput != "" {
			in.Output = runOutput
		}
		if in.Output == "" {
			in.Output = defaultOutput
		}
		if settingsPath != "" {
			st, err := settings.Load(settingsPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "⚠ Warning: settings not loaded, running without them: %v\n", err)
			} else {
				in.Settings = st
			}
		}

		opt := pipeline.Options{
			Logger:  slog.Default(),
			FlatCSV: runFlatCSV,
			Summary: !runNoSummary,
		}
		if cfg != nil {
			opt.SubjectColumn = cfg.SubjectColumn
			opt.ErrorSentinel = cfg.ErrorSentinel
			opt.FlatDateLayout = cfg.FlatDateLayout
			if !cfg.RunSummary && !cmd.Flags().Changed("no-summary") {
				opt.Summary = false
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		progress("Processing %d report(s)...\n", len(in.Reports))
		out, err := pipeline.Run(ctx, in, opt)
		if err != nil {
			return err
		}

		progress("✓ Wrote %s (run %s)\n", filepath.Base(out.WorkbookPath), out.RunID)
		progress("  vertical: %d rows\n", out.Long.Len())
		if out.Horizontal != nil {
			progress("  horizontal: %d rows\n", out.Horizontal.Len())
		}
		if out.Split != nil {
			progress("  split: %d rows\n", out.Split.Len())
		}
		if out.Stats != nil {
			progress("  stats: %d rows, pairwise: %d rows\n", len(out.Stats.Stats), len(out.Stats.Pairwise))
		}
		if out.FlatPath != "" {
			progress("✓ Wrote %s\n", filepath.Base(out.FlatPath))
		}
		for _, s := range out.Skipped {
			progress("⚠ Skipped: %s\n", s)
		}
		if len(out.Warnings) > 0 {
			progress("⚠ %d warning(s)", len(out.Warnings))
			if out.SummaryPath != "" {
				progress("; see %s", filepath.Base(out.SummaryPath))
			}
			progress("\n")
			if runWarnings {
				for _, w := range out.Warnings {
					progress("  - %s\n", w)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runStudy, "study", "p", "", "study whose reports and settings to use")
	runCmd.Flags().StringVarP(&runSettings, "settings", "s", "", "settings workbook (.xlsx) or YAML file (overrides the study's)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output workbook path (default: study output or "+defaultOutput+")")
	runCmd.Flags().BoolVar(&runFlatCSV, "flat-csv", false, "also write the flat CSV export regardless of KOMP_STYLE")
	runCmd.Flags().BoolVar(&runNoSummary, "no-summary", false, "do not write the YAML run summary")
	runCmd.Flags().BoolVar(&runWarnings, "warnings", false, "print every warning")
}
